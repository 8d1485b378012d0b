package ebilling

import (
	"context"
	"fmt"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
)

// Listener callback inyectado: todos reciben OnCreate, todos deben aprobar la anulación.
// El orden de la lista es el orden de notificación.
type Listener interface {
	OnCreate(ctx context.Context, tenant *entity.Tenant, doc *entity.ElectronicDocument) error
	// ApproveCancel nil aprueba; cualquier error veta la anulación con su motivo.
	ApproveCancel(ctx context.Context, props entity.Properties, doc *entity.ElectronicDocument) error
}

// Listeners lista ordenada.
type Listeners []Listener

func (ls Listeners) notifyCreate(ctx context.Context, log *logger.Logger, tenant *entity.Tenant, doc *entity.ElectronicDocument) {
	for _, l := range ls {
		if err := l.OnCreate(ctx, tenant, doc); err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("listener OnCreate falló")
		}
	}
}

// approveCancel primer veto gana.
func (ls Listeners) approveCancel(ctx context.Context, props entity.Properties, doc *entity.ElectronicDocument) error {
	for _, l := range ls {
		if err := l.ApproveCancel(ctx, props, doc); err != nil {
			return err
		}
	}
	return nil
}

// ── LoggingListener ──

// LoggingListener registra cada creación; aprueba toda anulación.
type LoggingListener struct {
	log *logger.Logger
}

func NewLoggingListener(log *logger.Logger) *LoggingListener {
	return &LoggingListener{log: log.WithComponent("ebilling.listener")}
}

func (l *LoggingListener) OnCreate(_ context.Context, tenant *entity.Tenant, doc *entity.ElectronicDocument) error {
	l.log.Info().
		Str("tenant", tenant.ID).
		Str("document_id", doc.ID).
		Str("type", string(doc.Type)).
		Str("status", string(doc.Status)).
		Str("name", doc.SourceName).
		Msg("comprobante electrónico creado")
	return nil
}

func (l *LoggingListener) ApproveCancel(context.Context, entity.Properties, *entity.ElectronicDocument) error {
	return nil
}

// ── CancelWindowListener ──

// DefaultCancelMaxAgeDays plazo de anulación cuando el tenant no configura Cancel.MaxAgeDays.
const DefaultCancelMaxAgeDays = 7

// CancelWindowListener solo aprueba anulaciones dentro del plazo desde la creación.
type CancelWindowListener struct {
	now func() time.Time
}

func NewCancelWindowListener(now func() time.Time) *CancelWindowListener {
	if now == nil {
		now = time.Now
	}
	return &CancelWindowListener{now: now}
}

func (l *CancelWindowListener) OnCreate(context.Context, *entity.Tenant, *entity.ElectronicDocument) error {
	return nil
}

func (l *CancelWindowListener) ApproveCancel(_ context.Context, props entity.Properties, doc *entity.ElectronicDocument) error {
	days := props.Int(entity.Key("Cancel", "MaxAgeDays"), DefaultCancelMaxAgeDays)
	limit := doc.CreatedAt.AddDate(0, 0, days)
	if l.now().After(limit) {
		return fmt.Errorf("plazo de anulación vencido (%d días)", days)
	}
	return nil
}
