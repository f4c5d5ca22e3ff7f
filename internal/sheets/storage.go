package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/boni/internal/model"
)

// botUser is the bridge's user row.
type botUser struct {
	TelegramID  string          `json:"telegram_id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Username    string          `json:"username"`
	Step        *string         `json:"step"`
	SessionData json.RawMessage `json:"session_data"`
	AccessLevel string          `json:"access_level"`
	UpdatedAt   string          `json:"updated_at"`
}

func (u botUser) session() (model.Session, error) {
	data, err := decodeData(u.SessionData)
	if err != nil {
		return model.Session{}, fmt.Errorf("user %s: %w", u.TelegramID, err)
	}
	sess := model.Session{
		UserID:  u.TelegramID,
		Profile: model.Profile{FirstName: u.FirstName, LastName: u.LastName, Username: u.Username},
		Data:    data,
		Access:  model.AccessLevel(u.AccessLevel),
	}
	if sess.Access == "" {
		sess.Access = model.AccessUser
	}
	if u.Step != nil {
		sess.Step = model.StepID(*u.Step)
	}
	if t, err := time.Parse(time.RFC3339Nano, u.UpdatedAt); err == nil {
		sess.UpdatedAt = t
	}
	return sess, nil
}

// decodeData accepts the payload as a JSON object or as a JSON-encoded
// string holding one; spreadsheet cells often store the latter. Non-string
// values are rendered as text.
func decodeData(raw json.RawMessage) (model.Data, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.Data{}, nil
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if strings.TrimSpace(nested) == "" {
			return model.Data{}, nil
		}
		raw = json.RawMessage(nested)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode session_data: %w", err)
	}
	out := make(model.Data, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case string:
			out[k] = x
		case nil:
			out[k] = ""
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(x)
		default:
			b, _ := json.Marshal(x)
			out[k] = string(b)
		}
	}
	return out, nil
}

type userKey struct {
	TelegramID string `json:"telegram_id"`
}

// GetSession reads the user row.
func (c *Client) GetSession(ctx context.Context, userID string) (model.Session, bool, error) {
	var u botUser
	found, err := c.call(ctx, cmdGetBotUser, userKey{userID}, &u)
	if err != nil {
		return model.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return model.Session{}, false, nil
	}
	sess, err := u.session()
	if err != nil {
		return model.Session{}, false, fmt.Errorf("get session: %w", err)
	}
	return sess, true, nil
}

// CreateSession creates the user row. If the bridge rejects the create
// because a concurrent one won, the winner's row is read back and returned.
func (c *Client) CreateSession(ctx context.Context, userID string, p model.Profile) (model.Session, error) {
	payload := struct {
		TelegramID string `json:"telegram_id"`
		FirstName  string `json:"first_name,omitempty"`
		LastName   string `json:"last_name,omitempty"`
		Username   string `json:"username,omitempty"`
	}{userID, p.FirstName, p.LastName, p.Username}

	var u botUser
	found, err := c.call(ctx, cmdCreateBotUser, payload, &u)
	if err != nil {
		existing, ok, getErr := c.GetSession(ctx, userID)
		if getErr == nil && ok {
			c.logger.Info("create lost race, using existing row", "user", userID)
			return existing, nil
		}
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	if !found || u.TelegramID == "" {
		return model.Session{UserID: userID, Profile: p, Data: model.Data{}, Access: model.AccessUser}, nil
	}
	return u.session()
}

// SetStep merges client-side and writes the full payload, since the bridge
// cannot merge atomically. Callers serialize per user.
func (c *Client) SetStep(ctx context.Context, userID string, step model.StepID, merge model.Data) (model.Session, error) {
	current, found, err := c.GetSession(ctx, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: %w", err)
	}
	if !found {
		current = model.Session{UserID: userID, Data: model.Data{}, Access: model.AccessUser}
	}
	data := model.ApplyStep(current.Data, step, merge)

	var stepValue *string
	if !step.IsIdle() {
		s := string(step)
		stepValue = &s
	}
	payload := struct {
		TelegramID  string     `json:"telegram_id"`
		Step        *string    `json:"step"`
		SessionData model.Data `json:"session_data"`
	}{userID, stepValue, data}

	var u botUser
	found, err = c.call(ctx, cmdUpdateBotUserStep, payload, &u)
	if err != nil {
		return model.Session{}, fmt.Errorf("set step: %w", err)
	}
	if found && u.TelegramID != "" {
		if sess, err := u.session(); err == nil {
			return sess, nil
		}
	}
	// Eventually consistent bridges may answer without the row.
	current.Step = step
	current.Data = data
	return current, nil
}

// SetAccess changes the access level.
func (c *Client) SetAccess(ctx context.Context, userID string, level model.AccessLevel) (model.Session, error) {
	payload := struct {
		TelegramID  string `json:"telegram_id"`
		AccessLevel string `json:"access_level"`
	}{userID, string(level)}

	var u botUser
	found, err := c.call(ctx, cmdUpdateAccess, payload, &u)
	if err != nil {
		return model.Session{}, fmt.Errorf("set access: %w", err)
	}
	if found && u.TelegramID != "" {
		return u.session()
	}
	sess, ok, err := c.GetSession(ctx, userID)
	if err != nil {
		return model.Session{}, fmt.Errorf("set access: %w", err)
	}
	if !ok {
		return model.Session{}, fmt.Errorf("set access %s: %w", userID, model.ErrNotFound)
	}
	sess.Access = level
	return sess, nil
}

// Ministries lists the ministries sheet.
func (c *Client) Ministries(ctx context.Context) ([]model.Ministry, error) {
	out := []model.Ministry{}
	if _, err := c.call(ctx, cmdGetMinistries, nil, &out); err != nil {
		return nil, fmt.Errorf("ministries: %w", err)
	}
	return out, nil
}

// MinistryByName filters the ministries sheet by name, ignoring case.
func (c *Client) MinistryByName(ctx context.Context, name string) (model.Ministry, error) {
	list, err := c.Ministries(ctx)
	if err != nil {
		return model.Ministry{}, err
	}
	for _, m := range list {
		if strings.EqualFold(strings.TrimSpace(m.Name), strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return model.Ministry{}, fmt.Errorf("ministry %q: %w", name, model.ErrNotFound)
}

type leaderRow struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MinistryID int64  `json:"ministry_id"`
	Active     *bool  `json:"active"`
}

// Leaders lists the leaders of a ministry. Rows without an active column
// count as active.
func (c *Client) Leaders(ctx context.Context, ministryID int64) ([]model.Leader, error) {
	var rows []leaderRow
	payload := struct {
		MinistryID int64 `json:"ministry_id"`
	}{ministryID}
	if _, err := c.call(ctx, cmdGetLeaders, payload, &rows); err != nil {
		return nil, fmt.Errorf("leaders: %w", err)
	}
	out := make([]model.Leader, 0, len(rows))
	for _, r := range rows {
		if r.MinistryID != 0 && r.MinistryID != ministryID {
			continue
		}
		out = append(out, model.Leader{
			ID:         r.ID,
			Name:       r.Name,
			MinistryID: ministryID,
			Active:     r.Active == nil || *r.Active,
		})
	}
	return out, nil
}

func (c *Client) create(ctx context.Context, command string, payload any) error {
	if _, err := c.call(ctx, command, payload, nil); err != nil {
		return fmt.Errorf("write %s: %w", strings.TrimPrefix(command, "create"), err)
	}
	return nil
}

// CreateEnvelopeLoad appends an envelope row.
func (c *Client) CreateEnvelopeLoad(ctx context.Context, e model.EnvelopeLoad) error {
	return c.create(ctx, cmdCreateEnvelope, e)
}

// CreateInstituteEnrollment appends an enrollment row.
func (c *Client) CreateInstituteEnrollment(ctx context.Context, e model.InstituteEnrollment) error {
	return c.create(ctx, cmdCreateEnrollment, e)
}

// CreateInstitutePayment appends a payment row.
func (c *Client) CreateInstitutePayment(ctx context.Context, e model.InstitutePayment) error {
	return c.create(ctx, cmdCreatePayment, e)
}

// CreatePrayerRequest appends a prayer request row.
func (c *Client) CreatePrayerRequest(ctx context.Context, e model.PrayerRequest) error {
	return c.create(ctx, cmdCreateRequest, e)
}

// CreateNewPerson appends a new-person row. The sheet names the submitter
// recorded_by.
func (c *Client) CreateNewPerson(ctx context.Context, e model.NewPersonRecord) error {
	payload := struct {
		ID         string    `json:"id"`
		TelegramID string    `json:"telegram_id"`
		RecordedBy string    `json:"recorded_by"`
		Details    string    `json:"details"`
		CreatedAt  time.Time `json:"created_at"`
	}{e.ID, e.UserID, e.UserName, e.Details, e.CreatedAt}
	return c.create(ctx, cmdCreateNewPerson, payload)
}

// IsBridgeError reports whether err came from the bridge.
func IsBridgeError(err error) bool {
	var be *BridgeError
	return errors.As(err, &be)
}
