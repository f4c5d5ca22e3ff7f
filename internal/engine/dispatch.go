package engine

import (
	"context"
	"errors"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
)

func (e *Engine) dispatch(ctx context.Context, m Message) error {
	sess, err := e.ensureSession(ctx, m)
	if err != nil {
		return err
	}
	e.recorder.MessageReceived(sess.Step)
	e.logger.Debug("dispatch", "user", sess.UserID, "step", sess.Step.String())

	text := flow.Normalize(m.Text)
	switch {
	case flow.IsReset(text):
		return e.toIdle(ctx, sess, m.ChatID, TextGreeting)
	case flow.IsCancel(text):
		return e.toIdle(ctx, sess, m.ChatID, TextCancelled)
	case e.adminPassphrase != "" && text == e.adminPassphrase:
		return e.elevate(ctx, sess, m.ChatID)
	}

	if sess.Step.IsIdle() {
		return e.dispatchIdle(ctx, sess, m.ChatID, text)
	}
	return e.dispatchStep(ctx, sess, m)
}

// ensureSession loads the sender's session, creating it on first contact.
// The profile carried by the message replaces the stored hints in memory so
// committed records use the sender's current name.
func (e *Engine) ensureSession(ctx context.Context, m Message) (model.Session, error) {
	sess, found, err := e.storage.GetSession(ctx, m.UserID)
	if err != nil {
		return model.Session{}, storageError(model.Session{UserID: m.UserID}, "get session", err)
	}
	if !found {
		sess, err = e.storage.CreateSession(ctx, m.UserID, m.Profile)
		if err != nil {
			return model.Session{}, storageError(model.Session{UserID: m.UserID}, "create session", err)
		}
		e.logger.Info("session created", "user", m.UserID)
	}
	if m.Profile != (model.Profile{}) {
		sess.Profile = m.Profile
	}
	return sess, nil
}

func (e *Engine) toIdle(ctx context.Context, sess model.Session, chatID, text string) error {
	updated, err := e.storage.SetStep(ctx, sess.UserID, model.Idle, nil)
	if err != nil {
		return storageError(sess, "reset session", err)
	}
	if !sess.Step.IsIdle() {
		e.logger.Info("flow abandoned", "user", sess.UserID, "step", sess.Step.String())
	}
	e.send(ctx, updated, chatID, text, e.catalog.Menu(sess.IsAdmin()), false)
	return nil
}

func (e *Engine) elevate(ctx context.Context, sess model.Session, chatID string) error {
	updated, err := e.storage.SetAccess(ctx, sess.UserID, model.AccessAdmin)
	if err != nil {
		return storageError(sess, "set access", err)
	}
	e.logger.Info("admin access granted", "user", sess.UserID)
	e.send(ctx, updated, chatID, TextAdminGranted, e.catalog.Menu(true), false)
	return nil
}

func (e *Engine) dispatchIdle(ctx context.Context, sess model.Session, chatID, text string) error {
	f, ok := e.catalog.FlowForLabel(text)
	if !ok {
		e.send(ctx, sess, chatID, TextUnknownCommand, e.catalog.Menu(sess.IsAdmin()), false)
		return nil
	}
	if f.AdminOnly && !sess.IsAdmin() {
		e.send(ctx, sess, chatID, TextNoAccess, nil, false)
		return nil
	}

	step, _ := e.catalog.Step(f.Start)
	updated, err := e.storage.SetStep(ctx, sess.UserID, f.Start, nil)
	if err != nil {
		return storageError(sess, "start flow", err)
	}
	e.recorder.FlowStarted(string(f.ID))
	e.logger.Info("flow started", "user", sess.UserID, "flow", string(f.ID))
	e.prompt(ctx, updated, chatID, step)
	return nil
}

func (e *Engine) dispatchStep(ctx context.Context, sess model.Session, m Message) error {
	step, ok := e.catalog.Step(sess.Step)
	if !ok {
		derr := &DispatchError{
			Code:    ErrCodeUnknownStep,
			Message: "persisted step is not declared",
			UserID:  sess.UserID,
			Step:    sess.Step,
		}
		e.logger.Error("unknown step, resetting session", "user", sess.UserID, "step", sess.Step.String())
		if err := e.toIdle(ctx, sess, m.ChatID, TextUnknownCommand); err != nil {
			return errors.Join(derr, err)
		}
		return derr
	}
	f, _ := e.catalog.Flow(step.Flow)

	value, ok, err := e.capture(ctx, sess, step, m)
	if err != nil {
		e.logger.Warn("attachment not resolved", "user", sess.UserID, "step", sess.Step.String(), "error", err)
		e.prompt(ctx, sess, m.ChatID, step)
		return nil
	}
	if !ok {
		e.logger.Debug("input mismatch", "user", sess.UserID, "step", sess.Step.String(), "expected", step.Input.String())
		if e.reprompt {
			e.prompt(ctx, sess, m.ChatID, step)
		}
		return nil
	}

	captured := model.Data{step.Key: value}
	payload := sess.Data.Merge(captured)
	if step.Derive != nil {
		derived := step.Derive(payload)
		captured = captured.Merge(derived)
		payload = payload.Merge(derived)
	}

	next, err := step.Successor(payload)
	if err != nil {
		return &DispatchError{
			Code:    ErrCodeUnknownStep,
			Message: "no successor",
			UserID:  sess.UserID,
			Step:    sess.Step,
			Flow:    f.ID,
			Err:     err,
		}
	}

	switch next {
	case flow.Done:
		// The final answer is stored before committing so a failed commit
		// can be retried from the same step.
		updated, err := e.storage.SetStep(ctx, sess.UserID, sess.Step, captured)
		if err != nil {
			e.send(ctx, sess, m.ChatID, TextCommitFailed, []string{flow.CommandCancel}, false)
			return storageError(sess, "store final answer", err)
		}
		updated.Profile = sess.Profile
		return e.finish(ctx, updated, f, m.ChatID)

	case flow.Discard:
		updated, err := e.storage.SetStep(ctx, sess.UserID, model.Idle, nil)
		if err != nil {
			return storageError(sess, "discard flow", err)
		}
		e.logger.Info("flow discarded", "user", sess.UserID, "flow", string(f.ID))
		e.send(ctx, updated, m.ChatID, TextDiscarded, e.catalog.Menu(sess.IsAdmin()), false)
		return nil
	}

	updated, err := e.storage.SetStep(ctx, sess.UserID, next, captured)
	if err != nil {
		e.send(ctx, sess, m.ChatID, TextAnswerNotSaved, []string{flow.CommandCancel}, false)
		return storageError(sess, "advance", err)
	}
	nextStep, _ := e.catalog.Step(next)
	e.prompt(ctx, updated, m.ChatID, nextStep)
	return nil
}

// capture extracts the value a step stores. ok is false when the message
// has the wrong shape for the step.
func (e *Engine) capture(ctx context.Context, sess model.Session, step *flow.Step, m Message) (value string, ok bool, err error) {
	text := flow.Normalize(m.Text)
	switch step.Input {
	case flow.InputText:
		if m.HasAttachment() || text == "" {
			return "", false, nil
		}
		return text, true, nil

	case flow.InputChoice:
		if m.HasAttachment() || text == "" {
			return "", false, nil
		}
		options := e.options(ctx, sess, step)
		if len(options) == 0 {
			// Reference data unavailable: accept any text.
			return text, true, nil
		}
		opt, ok := flow.MatchOption(options, text)
		return opt, ok, nil

	case flow.InputAttachment:
		a, ok := Largest(m.Attachments)
		if !ok {
			return "", false, nil
		}
		ref, err := e.resolver.Resolve(ctx, a)
		if err != nil {
			return "", false, err
		}
		return ref, true, nil
	}
	return "", false, nil
}

// options computes a choice step's set. A failed lookup degrades to an
// empty set.
func (e *Engine) options(ctx context.Context, sess model.Session, step *flow.Step) []string {
	if step.Options == nil {
		return nil
	}
	opts, err := step.Options(ctx, ministryNames{e.storage}, sess.Data)
	if err != nil {
		derr := &DispatchError{
			Code:    ErrCodeReferenceUnavailable,
			Message: "choice options",
			UserID:  sess.UserID,
			Step:    step.ID,
			Flow:    step.Flow,
			Err:     err,
		}
		e.logger.Warn("reference data unavailable", "error", derr)
		return nil
	}
	return opts
}

// prompt sends a step's question with its keyboard. Choice steps offer
// their options; every step offers the cancel command.
func (e *Engine) prompt(ctx context.Context, sess model.Session, chatID string, step *flow.Step) {
	var keyboard []string
	if step.Input == flow.InputChoice {
		keyboard = append(keyboard, e.options(ctx, sess, step)...)
	}
	keyboard = append(keyboard, flow.CommandCancel)
	e.send(ctx, sess, chatID, step.Prompt, keyboard, false)
}

// finish completes a flow whose terminal answer is stored in sess.
func (e *Engine) finish(ctx context.Context, sess model.Session, f *flow.Flow, chatID string) error {
	if f.ReadOnly() {
		return e.answerDirectory(ctx, sess, chatID)
	}

	ent, err := e.Commit(ctx, sess, f)
	var missing *flow.MissingKeyError
	if errors.As(err, &missing) {
		return e.rewind(ctx, sess, f, chatID, missing, err)
	}
	if err != nil {
		kind := f.Entity(sess.Data)
		e.recorder.CommitFailed(kind)
		e.logger.Error("commit failed", "user", sess.UserID, "flow", string(f.ID), "kind", string(kind), "error", err)
		e.send(ctx, sess, chatID, TextCommitFailed, []string{flow.CommandCancel}, false)
		return err
	}
	e.recorder.EntityCommitted(ent.Kind())
	e.logger.Info("entity committed", "user", sess.UserID, "kind", string(ent.Kind()), "id", ent.Base().ID)

	// The entity is durable at this point, so the user hears about it even
	// if the reset below fails.
	_, err = e.storage.SetStep(ctx, sess.UserID, model.Idle, nil)
	e.send(ctx, sess, chatID, CommitText(ent.Kind()), e.catalog.Menu(sess.IsAdmin()), false)
	if err != nil {
		return storageError(sess, "reset after commit", err)
	}
	return nil
}

// rewind moves a session whose payload lacks a required key back to the
// step that asks for it. Resending the terminal answer could never supply
// that key. Keys already captured are kept.
func (e *Engine) rewind(ctx context.Context, sess model.Session, f *flow.Flow, chatID string, missing *flow.MissingKeyError, cause error) error {
	e.recorder.CommitFailed(f.Entity(sess.Data))
	e.logger.Warn("payload incomplete, asking again", "user", sess.UserID, "step", sess.Step.String(), "missing", missing.Key)

	step, ok := e.catalog.Step(missing.Step)
	if !ok {
		return errors.Join(cause, e.toIdle(ctx, sess, chatID, TextAnswerMissing))
	}
	updated, err := e.storage.SetStep(ctx, sess.UserID, step.ID, nil)
	if err != nil {
		e.send(ctx, sess, chatID, TextCommitFailed, []string{flow.CommandCancel}, false)
		return errors.Join(cause, storageError(sess, "rewind", err))
	}
	updated.Profile = sess.Profile
	e.send(ctx, updated, chatID, TextAnswerMissing, nil, false)
	e.prompt(ctx, updated, chatID, step)
	return cause
}

func (e *Engine) answerDirectory(ctx context.Context, sess model.Session, chatID string) error {
	name := sess.Data[flow.KeyMinistry]
	ministry, err := e.storage.MinistryByName(ctx, name)
	if errors.Is(err, model.ErrNotFound) {
		e.send(ctx, sess, chatID, TextUnknownMinistry, nil, false)
		return nil
	}
	if err == nil {
		var leaders []model.Leader
		leaders, err = e.storage.Leaders(ctx, ministry.ID)
		if err == nil {
			if _, err := e.storage.SetStep(ctx, sess.UserID, model.Idle, nil); err != nil {
				return storageError(sess, "reset after directory", err)
			}
			e.send(ctx, sess, chatID, DirectoryText(ministry, activeLeaders(leaders)), e.catalog.Menu(sess.IsAdmin()), true)
			return nil
		}
	}

	e.send(ctx, sess, chatID, TextReferenceUnavailable, []string{flow.CommandCancel}, false)
	return &DispatchError{
		Code:    ErrCodeReferenceUnavailable,
		Message: "leader directory",
		UserID:  sess.UserID,
		Step:    sess.Step,
		Flow:    flow.LeaderDirectory,
		Err:     err,
	}
}

func activeLeaders(all []model.Leader) []model.Leader {
	out := make([]model.Leader, 0, len(all))
	for _, l := range all {
		if l.Active {
			out = append(out, l)
		}
	}
	return out
}
