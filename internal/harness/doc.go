// Package harness runs conversation scenarios against the real engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: prayer_request
//	description: "A user sends a prayer request"
//	seed: true
//	flow:
//	  - say: "🙏 Enviar petición de oración"
//	  - say: "Por la salud de mi abuela"
//	    expect:
//	      reply_contains: "Gracias por compartir"
//	  - photo: file-123
//	    user: "2002"
//	assertions:
//	  - type: committed_count
//	    kind: prayer_request
//	    count: 1
//	  - type: committed_fields
//	    kind: prayer_request
//	    expect: { content: "Por la salud de mi abuela" }
//	  - type: session
//	    expect: { step: idle }
//	  - type: notified
//	    count: 1
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite database with a fixed
// clock, sequential entity ids and a resolver that maps file ids to
// https://files.test/<id>. Messages are dispatched synchronously, so the
// transcript is reproducible and can be compared with a golden file:
//
//	> 🙏 Enviar petición de oración
//	< 🙏 ¿Cuál es el motivo de tu petición de oración?
//	  [Terminar]
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
