package worker

// auditoria_worker.go
// Processes category lifecycle events from QueueCategorias.
// Each event becomes one structured audit line and bumps the Prometheus counter.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	errSinHandler      = errors.New("no handler registered for job")
	errTipoDesconocido = errors.New("unknown job type")
	errEventoInvalido  = errors.New("evento sin tipo o sin ids")
)

var eventosAuditados = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "categoria_eventos_auditados_total",
		Help: "Category lifecycle events written to the audit log",
	},
	[]string{"tipo"},
)

// AuditoriaWorker turns lifecycle events into audit log entries.
type AuditoriaWorker struct {
	logger zerolog.Logger
}

// NewAuditoriaWorker creates an AuditoriaWorker writing to logger.
func NewAuditoriaWorker(logger zerolog.Logger) *AuditoriaWorker {
	return &AuditoriaWorker{logger: logger.With().Str("component", "auditoria").Logger()}
}

// Process decodes one EventoCategoria and logs it.
func (w *AuditoriaWorker) Process(_ context.Context, raw json.RawMessage) error {
	var ev EventoCategoria
	if err := json.Unmarshal(raw, &ev); err != nil {
		w.logger.Error().Err(err).Msg("auditoria: invalid payload")
		return err
	}
	if ev.Tipo == "" || len(ev.IDs) == 0 {
		w.logger.Warn().Str("tipo", ev.Tipo).Msg("auditoria: evento incompleto")
		return errEventoInvalido
	}

	ids := make([]string, 0, len(ev.IDs))
	for _, id := range ev.IDs {
		ids = append(ids, id.String())
	}
	w.logger.Info().
		Str("tipo", ev.Tipo).
		Strs("ids", ids).
		Str("actor", ev.Actor).
		Str("request_id", ev.RequestID).
		Str("detalle", ev.Detalle).
		Time("ocurrido", ev.Ocurrido).
		Msg("categoria auditada")
	eventosAuditados.WithLabelValues(ev.Tipo).Inc()
	return nil
}
