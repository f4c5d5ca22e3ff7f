package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
)

func TestCommit_RejectsPartialPayload(t *testing.T) {
	h := newHarness(t)
	f, _ := h.engine.Catalog().Flow(flow.Envelope)

	sess := model.Session{
		UserID: "u1",
		Step:   flow.EnvelopeConfirm,
		Data:   model.Data{flow.KeyMinistry: "Horeb", flow.KeyConfirmed: flow.Yes},
	}
	_, err := h.engine.Commit(context.Background(), sess, f)
	require.Error(t, err)
	assert.True(t, IsMissingKeyError(err))
	assert.Empty(t, h.storage.committed())
}

func TestCommit_ReadOnlyFlow(t *testing.T) {
	h := newHarness(t)
	f, _ := h.engine.Catalog().Flow(flow.LeaderDirectory)

	_, err := h.engine.Commit(context.Background(), model.Session{UserID: "u1"}, f)
	assert.Error(t, err)
}

func TestCommit_AssignsServerFields(t *testing.T) {
	h := newHarness(t)
	f, _ := h.engine.Catalog().Flow(flow.NewPerson)

	sess := model.Session{
		UserID:  "42",
		Profile: model.Profile{FirstName: "Luis"},
		Step:    flow.NewPersonDetails,
		Data:    model.Data{flow.KeyDetails: "Sofía, vecina"},
	}
	ent, err := h.engine.Commit(context.Background(), sess, f)
	require.NoError(t, err)

	base := ent.Base()
	assert.Equal(t, "ent-0001", base.ID)
	assert.Equal(t, "42", base.UserID)
	assert.Equal(t, "Luis", base.UserName)
	assert.Equal(t, time.UTC, base.CreatedAt.Location())
	assert.Equal(t, model.KindNewPerson, ent.Kind())
}

func TestBuildEntity_UnknownKind(t *testing.T) {
	_, err := BuildEntity("mystery", model.Submission{}, nil)
	assert.Error(t, err)
}

func TestBuildEntity_Payment(t *testing.T) {
	ent, err := BuildEntity(model.KindInstitutePayment, model.Submission{ID: "x"}, model.Data{
		flow.KeyFullName:     "Ana",
		flow.KeyPhotoMonthly: "ref",
		flow.KeyOption:       flow.OptionPayment,
	})
	require.NoError(t, err)
	assert.Equal(t, model.InstitutePayment{
		Submission:   model.Submission{ID: "x"},
		FullName:     "Ana",
		PhotoMonthly: "ref",
	}, ent)
}

func TestDirectoryText_NoLeaders(t *testing.T) {
	got := DirectoryText(model.Ministry{Name: "Espigas"}, nil)
	assert.Equal(t, "👥 Líderes del ministerio Espigas:\n\nNo hay líderes registrados.", got)
}

func TestDirectoryText_EscapesMarkdown(t *testing.T) {
	got := DirectoryText(
		model.Ministry{Name: "Jovenes_2024", WhatsAppLink: "https://wa.me/1"},
		[]model.Leader{{Name: "Ana *La Profe*"}, {Name: "[Juan] `JP`"}},
	)
	want := "👥 Líderes del ministerio Jovenes\\_2024:\n\n" +
		"• Ana \\*La Profe\\*\n" +
		"• \\[Juan] \\`JP\\`\n" +
		"\n📲 [WhatsApp](https://wa.me/1)"
	assert.Equal(t, want, got)
}

func TestDispatchError_Format(t *testing.T) {
	err := &DispatchError{Code: ErrCodeStorage, Message: "get session", UserID: "7", Step: model.Idle}
	assert.Equal(t, "STORAGE: get session (user=7, step=idle)", err.Error())
	assert.True(t, IsStorageError(err))
	assert.False(t, IsCommitError(err))
}
