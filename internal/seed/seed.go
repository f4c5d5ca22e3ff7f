// Package seed loads ministry and leader reference data declared in CUE.
//
// A seed file is validated against an embedded schema before it is
// decoded, so a typo in a field name or an empty leader name is reported
// with its CUE position instead of reaching the database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/boni/internal/model"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed defaults.cue
var defaultsCUE []byte

// Seed is a decoded seed file.
type Seed struct {
	Ministries []Ministry `json:"ministries"`
}

type Ministry struct {
	Name         string   `json:"name"`
	WhatsAppLink string   `json:"whatsapp_link"`
	Leaders      []Leader `json:"leaders"`
}

type Leader struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Writer is the subset of the relational store Apply needs.
type Writer interface {
	UpsertMinistry(ctx context.Context, name, whatsappLink string) (model.Ministry, error)
	UpsertLeader(ctx context.Context, ministryID int64, name string, active bool) (model.Leader, error)
}

// Result counts what Apply wrote.
type Result struct {
	Ministries int
	Leaders    int
}

// Parse validates src against the schema and decodes it. filename is used
// in error positions only.
func Parse(filename string, src []byte) (Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Seed{}, fmt.Errorf("compile seed schema: %w", err)
	}
	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Seed{}, fmt.Errorf("compile %s: %s", filename, details(err))
	}

	v := schema.LookupPath(cue.ParsePath("#Seed")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Seed{}, fmt.Errorf("validate %s: %s", filename, details(err))
	}

	var s Seed
	if err := v.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("decode %s: %w", filename, err)
	}
	if err := s.checkUnique(); err != nil {
		return Seed{}, fmt.Errorf("validate %s: %w", filename, err)
	}
	return s, nil
}

// Load reads and parses a seed file.
func Load(path string) (Seed, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return Parse(path, src)
}

// Defaults returns the reference data a fresh database starts with.
func Defaults() Seed {
	s, err := Parse("defaults.cue", defaultsCUE)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded defaults invalid: %v", err))
	}
	return s
}

// Apply upserts every ministry and its leaders. Re-applying the same seed
// changes nothing.
func Apply(ctx context.Context, w Writer, s Seed) (Result, error) {
	var res Result
	for _, m := range s.Ministries {
		saved, err := w.UpsertMinistry(ctx, m.Name, m.WhatsAppLink)
		if err != nil {
			return res, err
		}
		res.Ministries++
		for _, l := range m.Leaders {
			if _, err := w.UpsertLeader(ctx, saved.ID, l.Name, l.Active); err != nil {
				return res, err
			}
			res.Leaders++
		}
	}
	return res, nil
}

// checkUnique rejects ministries whose names differ only in case, and
// repeated leaders within a ministry.
func (s Seed) checkUnique() error {
	ministries := make(map[string]bool)
	for _, m := range s.Ministries {
		key := strings.ToLower(m.Name)
		if ministries[key] {
			return fmt.Errorf("duplicate ministry %q", m.Name)
		}
		ministries[key] = true

		leaders := make(map[string]bool)
		for _, l := range m.Leaders {
			if leaders[l.Name] {
				return fmt.Errorf("duplicate leader %q in ministry %q", l.Name, m.Name)
			}
			leaders[l.Name] = true
		}
	}
	return nil
}

func details(err error) string {
	return strings.TrimSpace(cueerrors.Details(err, nil))
}
