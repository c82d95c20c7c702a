package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastillo/vacunastock-api/internal/application/stock"
	"github.com/jcastillo/vacunastock-api/internal/application/usecase"
	"github.com/jcastillo/vacunastock-api/internal/domain/entity"
	"github.com/jcastillo/vacunastock-api/internal/infrastructure/memory"
	apphttp "github.com/jcastillo/vacunastock-api/internal/interfaces/http"
	pkgjwt "github.com/jcastillo/vacunastock-api/pkg/jwt"
)

// apiEnv aplicación completa sobre el almacén en memoria, con una jerarquía
// mínima NATIONAL → reg-1 → dis-1 → hc-1.
type apiEnv struct {
	app   *fiber.App
	store *memory.Store
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := memory.NewStore()
	store.AddRegion("reg-1")
	store.AddDistrict("dis-1", "reg-1")
	store.AddHealthCenter("hc-1", "dis-1")

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		VaccineUC:     usecase.NewVaccineUseCase(store.Vaccines()),
		LedgerUC:      stock.NewLedgerUseCase(store, store.Vaccines(), store.Lots(), store, stock.NopNotifier{}),
		StatsUC:       stock.NewStatsUseCase(store.Vaccines(), store.Lots(), store, 10),
		TransferUC:    stock.NewTransferUseCase(store, store.Vaccines(), store.Transfers(), store, stock.NopNotifier{}),
		ReservationUC: stock.NewReservationUseCase(store, store.Vaccines(), store.Reservations(), store, stock.NopNotifier{}),
		JWTSecret:     testJWTSecret,
	})
	return &apiEnv{app: app, store: store}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// seedVaccine registra una vacuna directamente en el almacén.
func (e *apiEnv) seedVaccine(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.store.Vaccines().Create(context.Background(), &entity.Vaccine{
		ID: id, Name: id, DosesRequired: 2, CreatedAt: time.Now(),
	}))
}

// seedLot inyecta un lote acreditado en cualquier nivel (los niveles no
// nacionales normalmente se abastecen por traslado).
func (e *apiEnv) seedLot(t *testing.T, vaccineID string, owner entity.OwnerRef, quantity int64, expiration time.Time) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	require.NoError(t, e.store.Lots().Create(ctx, &entity.Lot{
		ID:                id,
		VaccineID:         vaccineID,
		Owner:             owner,
		Quantity:          decimal.NewFromInt(quantity),
		RemainingQuantity: decimal.NewFromInt(quantity),
		Expiration:        expiration,
		Status:            entity.LotStatusValid,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}))
	level, err := e.store.Levels().Get(ctx, vaccineID, owner)
	require.NoError(t, err)
	level.Quantity = level.Quantity.Add(decimal.NewFromInt(quantity))
	require.NoError(t, e.store.Levels().Upsert(ctx, level))
	return id
}

func nextYear() string {
	return time.Now().AddDate(1, 0, 0).Format("2006-01-02")
}

func TestHealthEsPublico(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIRequiereToken(t *testing.T) {
	e := newAPIEnv(t)
	resp := e.do(t, http.MethodGet, "/api/vaccines", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCrearVacunaYLoteNacional(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")

	resp := e.do(t, http.MethodPost, "/api/vaccines", admin, map[string]any{
		"name": "BCG", "doses_required": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	vaccine := decodeBody(t, resp)
	vaccineID := vaccine["id"].(string)

	resp = e.do(t, http.MethodPost, "/api/stock/lots", admin, map[string]any{
		"vaccine_id": vaccineID,
		"owner_type": "NATIONAL",
		"quantity":   "100",
		"expiration": nextYear(),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	lot := decodeBody(t, resp)
	assert.Equal(t, "VALID", lot["status"])
	assert.Equal(t, "100", lot["remaining_quantity"])

	resp = e.do(t, http.MethodGet,
		fmt.Sprintf("/api/stock/lots?vaccine_id=%s&owner_type=NATIONAL", vaccineID), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody(t, resp)
	assert.Equal(t, "100", list["total_remaining"])
	assert.Equal(t, float64(1), list["total"])
}

func TestCrearLoteRegionalRechazado(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")
	e.seedVaccine(t, "vac-1")

	resp := e.do(t, http.MethodPost, "/api/stock/lots", admin, map[string]any{
		"vaccine_id": "vac-1",
		"owner_type": "REGIONAL",
		"owner_id":   "reg-1",
		"quantity":   "10",
		"expiration": nextYear(),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode,
		"solo el nivel NACIONAL recibe stock por adición directa")
}

func TestFlujoDeTraslado(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")
	e.seedVaccine(t, "vac-1")
	e.seedLot(t, "vac-1", entity.NationalOwner(), 100, time.Now().AddDate(1, 0, 0))

	// Abrir: debita el origen y queda PENDING.
	resp := e.do(t, http.MethodPost, "/api/transfers", admin, map[string]any{
		"vaccine_id": "vac-1",
		"from_type":  "NATIONAL",
		"to_type":    "REGIONAL",
		"to_id":      "reg-1",
		"quantity":   "30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	transfer := decodeBody(t, resp)
	assert.Equal(t, "PENDING", transfer["status"])
	transferID := transfer["id"].(string)

	// Confirmar: materializa lotes en destino.
	resp = e.do(t, http.MethodPost, "/api/transfers/"+transferID+"/confirm", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decodeBody(t, resp)
	created := confirmed["created_lots"].([]interface{})
	assert.Len(t, created, 1)

	// Confirmar dos veces: conflicto.
	resp = e.do(t, http.MethodPost, "/api/transfers/"+transferID+"/confirm", admin, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTrasladoInsuficienteYAristaInvalida(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")
	e.seedVaccine(t, "vac-1")
	e.seedLot(t, "vac-1", entity.NationalOwner(), 20, time.Now().AddDate(1, 0, 0))

	resp := e.do(t, http.MethodPost, "/api/transfers", admin, map[string]any{
		"vaccine_id": "vac-1",
		"from_type":  "NATIONAL",
		"to_type":    "REGIONAL",
		"to_id":      "reg-1",
		"quantity":   "500",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])

	// Saltarse un nivel de la jerarquía.
	resp = e.do(t, http.MethodPost, "/api/transfers", admin, map[string]any{
		"vaccine_id": "vac-1",
		"from_type":  "NATIONAL",
		"to_type":    "DISTRICT",
		"to_id":      "dis-1",
		"quantity":   "5",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "INVALID_HIERARCHY_EDGE", body["code"])
}

func TestEliminarLoteBloqueadoPorPendiente(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")
	e.seedVaccine(t, "vac-1")
	lotID := e.seedLot(t, "vac-1", entity.NationalOwner(), 100, time.Now().AddDate(1, 0, 0))

	resp := e.do(t, http.MethodPost, "/api/transfers", admin, map[string]any{
		"vaccine_id": "vac-1",
		"from_type":  "NATIONAL",
		"to_type":    "REGIONAL",
		"to_id":      "reg-1",
		"quantity":   "30",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodDelete, "/api/stock/lots/"+lotID, admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "LOT_REFERENCED", body["code"])
}

func TestFlujoDeReserva(t *testing.T) {
	e := newAPIEnv(t)
	e.seedVaccine(t, "vac-1")
	center := entity.OwnerRef{Type: entity.OwnerHealthCenter, ID: "hc-1"}
	e.seedLot(t, "vac-1", center, 5, time.Now().AddDate(1, 0, 0))

	// Token de enfermería acotado al centro: el body puede omitir health_center_id.
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, "enfermeria", "HEALTHCENTER", "hc-1", testIssuer, testExpMin)
	require.NoError(t, err)
	nurse := "Bearer " + tok

	resp := e.do(t, http.MethodPost, "/api/reservations", nurse, map[string]any{
		"schedule_id": "agenda-7",
		"vaccine_id":  "vac-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reservation := decodeBody(t, resp)
	assert.Equal(t, "ACTIVE", reservation["status"])
	assert.Equal(t, "1", reservation["quantity"])
	reservationID := reservation["id"].(string)

	resp = e.do(t, http.MethodPost, "/api/reservations/"+reservationID+"/consume", nurse, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	consumed := decodeBody(t, resp)
	assert.Equal(t, "CONSUMED", consumed["status"])

	// Cancelar una reserva ya consumida: conflicto.
	resp = e.do(t, http.MethodPost, "/api/reservations/"+reservationID+"/cancel", nurse, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "RESERVATION_NOT_ACTIVE", body["code"])
}

func TestReservaSinStock(t *testing.T) {
	e := newAPIEnv(t)
	e.seedVaccine(t, "vac-1")
	nurse := tokenForRole(t, "enfermeria")

	resp := e.do(t, http.MethodPost, "/api/reservations", nurse, map[string]any{
		"schedule_id":      "agenda-7",
		"health_center_id": "hc-1",
		"vaccine_id":       "vac-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
}

func TestEstadisticas(t *testing.T) {
	e := newAPIEnv(t)
	admin := tokenForRole(t, "admin")
	e.seedVaccine(t, "vac-1")
	e.seedLot(t, "vac-1", entity.NationalOwner(), 5, time.Now().AddDate(1, 0, 0))

	resp := e.do(t, http.MethodGet,
		"/api/stock/stats?vaccine_id=vac-1&owner_type=NATIONAL&threshold=50", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["total_lots"])
	assert.Equal(t, "5", body["total_quantity"])
	assert.Equal(t, float64(1), body["low_stock_count"])
	assert.Equal(t, float64(50), body["threshold"])
}

func TestRolesEnRutasDeStock(t *testing.T) {
	e := newAPIEnv(t)
	e.seedVaccine(t, "vac-1")
	nurse := tokenForRole(t, "enfermeria")

	// enfermería no puede dar de alta lotes.
	resp := e.do(t, http.MethodPost, "/api/stock/lots", nurse, map[string]any{
		"vaccine_id": "vac-1",
		"owner_type": "NATIONAL",
		"quantity":   "10",
		"expiration": nextYear(),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
