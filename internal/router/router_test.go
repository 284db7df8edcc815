package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authhandler "github.com/jwalitptl/medipass-api/internal/handler/auth"
	"github.com/jwalitptl/medipass-api/internal/handler/consultation"
	"github.com/jwalitptl/medipass-api/internal/handler/health"
	"github.com/jwalitptl/medipass-api/internal/handler/patient"
	"github.com/jwalitptl/medipass-api/internal/handler/practitioner"
	"github.com/jwalitptl/medipass-api/internal/handler/prometheus"
	reporthandler "github.com/jwalitptl/medipass-api/internal/handler/report"
	"github.com/jwalitptl/medipass-api/internal/middleware"
	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/service/auth"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/report"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	jwtauth "github.com/jwalitptl/medipass-api/pkg/auth"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
	"github.com/jwalitptl/medipass-api/pkg/security"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := metrics.New("test")

	dir := directory.NewService(directory.WithClock(clock))
	engine := scheduling.NewService(dir, scheduling.Options{Now: clock, Metrics: m})
	authSvc := auth.NewService(dir, security.NewBcryptHasher(bcrypt.MinCost),
		jwtauth.NewJWTService("secret", "medipass", time.Hour, clock), time.Hour, nil)

	hash, err := authSvc.HashSecret("admin-secret")
	require.NoError(t, err)
	_, err = dir.CreateAdministrator(context.Background(), model.Administrator{
		Person:  model.Person{ID: 1000, FamilyName: "Root", GivenName: "Admin"},
		Account: model.Account{Login: "root", SecretHash: hash, Active: true},
	})
	require.NoError(t, err)

	r := NewRouter(middleware.NewAuthMiddleware(authSvc), Handlers{
		Auth:         authhandler.NewHandler(authSvc, dir),
		Patient:      patient.NewHandler(dir, engine, time.UTC),
		Practitioner: practitioner.NewHandler(dir, engine, authSvc, time.UTC),
		Consultation: consultation.NewHandler(engine, time.UTC),
		Report:       reporthandler.NewHandler(report.NewService(engine, dir), time.UTC),
		Health:       health.NewHandler(nil),
		Prometheus:   prometheus.New(nil),
	}, m, RouterConfig{})
	return &api{t: t, engine: r.Engine()}
}

func (a *api) call(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func (a *api) login(login, secret string) string {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": login, "secret": secret})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var tok model.TokenResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &tok))
	return tok.AccessToken
}

func (a *api) createPractitioner(admin string, id int, login string) {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/v1/practitioners", admin, gin.H{
		"id": id, "login": login, "secret": login + "-secret",
		"family_name": "Doc", "given_name": login, "specialty": "general", "license_number": "L-" + login,
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
}

func TestConsultationWorkflow(t *testing.T) {
	a := newAPI(t)
	admin := a.login("root", "admin-secret")
	a.createPractitioner(admin, 10, "house")
	a.createPractitioner(admin, 11, "grey")
	house := a.login("house", "house-secret")
	grey := a.login("grey", "grey-secret")

	code, env := a.call(http.MethodPost, "/api/v1/patients", house, gin.H{
		"id": 1, "family_name": "Martin", "given_name": "Alice", "birth_date": "1990-05-04", "blood_group": "A+",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var p patient.View
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.NotNil(t, p.Record)
	require.NotNil(t, p.Age)
	assert.Equal(t, 33, *p.Age)

	code, env = a.call(http.MethodPost, "/api/v1/consultations", house, gin.H{
		"start": "2024-01-10 09:00", "reason": "checkup", "patient_id": 1,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var booked model.ConsultationView
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	assert.Equal(t, 10, booked.PractitionerID)
	assert.Equal(t, 30, booked.DurationMinutes)

	// same patient, overlapping slot with another practitioner
	code, _ = a.call(http.MethodPost, "/api/v1/consultations", grey, gin.H{
		"start": "2024-01-10 09:15", "reason": "second opinion", "patient_id": 1,
	})
	assert.Equal(t, http.StatusConflict, code)

	// malformed date
	code, env = a.call(http.MethodPost, "/api/v1/consultations", grey, gin.H{
		"start": "10/01/2024", "reason": "x", "patient_id": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "retry")

	// practitioners cannot book for one another
	code, _ = a.call(http.MethodPost, "/api/v1/consultations", grey, gin.H{
		"start": "2024-01-11 09:00", "reason": "x", "patient_id": 1, "practitioner_id": 10,
	})
	assert.Equal(t, http.StatusForbidden, code)

	// nor cancel one another's consultations
	cancelPath := "/api/v1/consultations/" + itoa(booked.ID) + "/cancel"
	code, _ = a.call(http.MethodPost, cancelPath, grey, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.call(http.MethodPut, "/api/v1/consultations/"+itoa(booked.ID)+"/diagnosis", house, gin.H{"text": "flu"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.call(http.MethodPost, cancelPath, admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var cancelled model.ConsultationView
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, "flu", cancelled.Diagnosis)

	code, _ = a.call(http.MethodPost, "/api/v1/consultations/"+itoa(booked.ID)+"/complete", house, nil)
	assert.Equal(t, http.StatusConflict, code)

	// the slot is free again
	code, _ = a.call(http.MethodPost, "/api/v1/consultations", grey, gin.H{
		"start": "2024-01-10 09:15", "reason": "second opinion", "patient_id": 1,
	})
	assert.Equal(t, http.StatusCreated, code)

	code, env = a.call(http.MethodGet, "/api/v1/consultations?status=scheduled&from=2024-01-10&to=2024-01-10", house, nil)
	require.Equal(t, http.StatusOK, code)
	var listed []model.ConsultationView
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, 11, listed[0].PractitionerID)

	code, env = a.call(http.MethodGet, "/api/v1/practitioners/11/planning?view=week&date=2024-01-08", grey, nil)
	require.Equal(t, http.StatusOK, code)
	var plan []model.DayPlan
	require.NoError(t, json.Unmarshal(env.Data, &plan))
	require.Len(t, plan, 1)
	assert.Len(t, plan[0].Consultations, 1)

	code, env = a.call(http.MethodGet, "/api/v1/reports/summary?from=2024-01-01&to=2024-01-31", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var summary report.Summary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.Patients)
	assert.Equal(t, 2, summary.Practitioners)
	assert.Equal(t, 2, summary.Consultations)
	assert.Equal(t, 1, summary.Cancelled)
	require.NotNil(t, summary.Period)
	assert.Equal(t, 2, summary.Period.Consultations)
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)

	code, _ := a.call(http.MethodGet, "/api/v1/patients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.call(http.MethodPost, "/api/v1/auth/login", "", gin.H{"login": "root", "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)

	admin := a.login("root", "admin-secret")
	a.createPractitioner(admin, 10, "house")
	house := a.login("house", "house-secret")

	code, _ = a.call(http.MethodDelete, "/api/v1/practitioners/10", house, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := a.call(http.MethodGet, "/api/v1/practitioners?login=HOUSE", house, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var byLogin []model.Practitioner
	require.NoError(t, json.Unmarshal(env.Data, &byLogin))
	require.Len(t, byLogin, 1)
	assert.Equal(t, 10, byLogin[0].ID)
	code, _ = a.call(http.MethodGet, "/api/v1/practitioners?login=nobody", house, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.call(http.MethodPut, "/api/v1/accounts/root/contact", house, gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodPut, "/api/v1/accounts/house/contact", house, gin.H{"email": "house@example.com"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.call(http.MethodPut, "/api/v1/accounts/house/active", admin, gin.H{"active": false})
	require.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodGet, "/api/v1/patients", house, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = a.call(http.MethodPost, "/api/v1/auth/logout", admin, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodGet, "/api/v1/patients", admin, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	code, _ := a.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
