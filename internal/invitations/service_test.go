package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/promise/internal/apperr"
	"github.com/jimdaga/promise/internal/models"
	"github.com/jimdaga/promise/internal/notify"
	"github.com/jimdaga/promise/internal/store"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *store.Memory
	rec   *notify.Recorder
	user  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	rec := &notify.Recorder{}
	svc := NewService(st, rec, slog.New(slog.NewTextHandler(io.Discard, nil)), "https://promise.test", func() time.Time { return t0 })

	user := &models.User{Name: "Ana", Email: "ana@x.com", ReminderTime: models.ReminderMorning}
	promise := &models.Promise{Text: "read 10 pages", Visibility: models.VisibilityPrivate}
	require.NoError(t, st.CreateUserWithPromise(context.Background(), user, promise))

	return &fixture{svc: svc, store: st, rec: rec, user: user}
}

func TestCreate_SnapshotsAndNotifies(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(context.Background(), f.user.ID, "  Bo@X.com ", "run 5k")
	require.NoError(t, err)

	assert.Equal(t, "bo@x.com", inv.PartnerEmail)
	assert.Equal(t, "run 5k", inv.PromiseText)
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Equal(t, t0, inv.CreatedAt)

	sent := f.rec.ByTemplate(notify.TemplatePartnerInvitation)
	require.Len(t, sent, 1)
	assert.Equal(t, "bo@x.com", sent[0].To)
	assert.Equal(t, "Ana", sent[0].InviterName)
	assert.Equal(t, "ana@x.com", sent[0].InviterEmail)
	assert.Equal(t, "https://promise.test/invitation/"+inv.ID.String()+"/accept", sent[0].InvitationURL)
	assert.Equal(t, "https://promise.test/invitation/"+inv.ID.String()+"/decline", sent[0].DeclineURL)
}

func TestCreate_FallsBackToCurrentPromise(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.Create(context.Background(), f.user.ID, "bo@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, "read 10 pages", inv.PromiseText)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.New(), "bo@x.com", "x")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, f.user.ID, "not-an-email", "x")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Create(ctx, f.user.ID, "ANA@x.com", "x")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Empty(t, f.rec.Sent())
}

func TestCreate_DispatchFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.rec.Err = assert.AnError

	inv, err := f.svc.Create(context.Background(), f.user.ID, "bo@x.com", "")
	require.NoError(t, err)

	view, err := f.svc.View(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.False(t, view.Resolved)
}

func TestAccept_OneWay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.user.ID, "bo@x.com", "")
	require.NoError(t, err)

	view, err := f.svc.View(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ActionAccept, ActionDecline}, view.Actions)
	assert.Equal(t, "Ana", view.InviterName)

	view, err = f.svc.Accept(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, view.Resolved)
	assert.Empty(t, view.Actions)
	assert.Equal(t, models.InvitationStatusAccepted, view.Invitation.Status)

	accepted := f.rec.ByTemplate(notify.TemplateInvitationAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, "ana@x.com", accepted[0].To)
	assert.Equal(t, "bo@x.com", accepted[0].PartnerEmail)
	assert.Equal(t, "https://promise.test/dashboard/"+f.user.ID.String(), accepted[0].DashboardURL)

	_, err = f.svc.Decline(ctx, inv.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvitationResolved))

	_, err = f.svc.Accept(ctx, inv.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvitationResolved))

	view, err = f.svc.View(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, view.Invitation.Status)
	assert.Empty(t, f.rec.ByTemplate(notify.TemplateInvitationDeclined))
}

func TestDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.user.ID, "bo@x.com", "")
	require.NoError(t, err)

	view, err := f.svc.Decline(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, view.Invitation.Status)
	assert.Len(t, f.rec.ByTemplate(notify.TemplateInvitationDeclined), 1)

	_, err = f.svc.Accept(ctx, inv.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvitationResolved))
}

func TestResolve_Unknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Accept(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.View(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPartners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	partners, err := f.svc.Partners(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, partners)

	inv, err := f.svc.AddPartner(ctx, f.user.ID, "bo@x.com")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.user.ID, "cy@x.com", "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, inv.ID)
	require.NoError(t, err)

	partners, err = f.svc.Partners(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bo@x.com"}, partners)

	require.NoError(t, f.svc.RemovePartner(ctx, f.user.ID, "BO@x.com"))
	partners, err = f.svc.Partners(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, partners)

	err = f.svc.RemovePartner(ctx, f.user.ID, "bo@x.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.List(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Create(ctx, f.user.ID, "bo@x.com", "")
	require.NoError(t, err)
	list, err = f.svc.List(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.List(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestInvitationRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), f.svc)
	userPath := "/api/user/" + f.user.ID.String()

	code, out := doJSON(t, r, http.MethodPost, userPath+"/invite-partner", map[string]any{"partnerEmail": "bo@x.com", "promise": "run 5k"})
	require.Equal(t, http.StatusOK, code, out)
	id := out["invitation"].(map[string]any)["id"].(string)
	invPath := "/api/invitation/" + id

	code, out = doJSON(t, r, http.MethodGet, invPath+"/accept", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["resolved"])
	assert.Equal(t, "pending", out["invitation"].(map[string]any)["status"])

	code, out = doJSON(t, r, http.MethodPost, invPath+"/accept", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accepted", out["status"])

	code, out = doJSON(t, r, http.MethodPost, invPath+"/decline", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVITATION_RESOLVED", out["error"])
	assert.Equal(t, "accepted", out["status"])

	code, out = doJSON(t, r, http.MethodGet, invPath, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["resolved"])
	assert.Equal(t, []any{}, out["actions"])

	code, out = doJSON(t, r, http.MethodGet, userPath+"/accountability", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"bo@x.com"}, out["partners"])

	code, out = doJSON(t, r, http.MethodGet, userPath+"/invite-partner", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["invitations"], 1)

	code, _ = doJSON(t, r, http.MethodDelete, userPath+"/accountability", map[string]any{"email": "bo@x.com"})
	require.Equal(t, http.StatusOK, code)

	code, _ = doJSON(t, r, http.MethodGet, "/api/invitation/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doJSON(t, r, http.MethodPost, "/api/invitation/"+uuid.NewString()+"/accept", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
