package ebilling_test

import (
	"context"
	"testing"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingDoc(e *env, id string) *entity.ElectronicDocument {
	doc := &entity.ElectronicDocument{
		ID:         id,
		TenantID:   tenantID,
		Type:       entity.TypeInvoice,
		Status:     entity.StatusPending,
		SourceName: "F001-" + id,
		Channel:    entity.ChannelSOAP,
		CreatedAt:  time.Now(),
	}
	e.docs.put(doc)
	return doc
}

func TestApply_AceptadoPasaPorIssued(t *testing.T) {
	e := newEnv().build()
	doc := pendingDoc(e, "d1")

	o := e.interp.Apply(context.Background(), e.props, doc, &entity.Acknowledgment{Code: "0", Description: "aceptada"})
	require.True(t, o.IsOk(), o.String())
	assert.Equal(t, entity.StatusSuccessful, doc.Status)
	assert.Equal(t, entity.StatusSuccessful, e.docs.status("d1"))
	assert.Equal(t, []string{"0"}, e.logs.codes("d1"))
}

func TestApply_CodigoDistintoDeCeroNoCambiaEstado(t *testing.T) {
	e := newEnv().build()
	doc := pendingDoc(e, "d1")
	ack := &entity.Acknowledgment{
		Code:        "2017",
		Description: "rechazo",
		Reasons:     []entity.StatusReason{{Code: "2017", Reason: "RUC inválido"}},
	}

	o := e.interp.Apply(context.Background(), e.props, doc, ack)
	assert.True(t, o.IsSkipped())
	assert.Equal(t, entity.StatusPending, e.docs.status("d1"))

	entries, _ := e.logs.ListByDocument(context.Background(), "d1")
	require.Len(t, entries, 1)
	assert.Equal(t, "2017", entries[0].Code)
	assert.Equal(t, []string{"2017 - RUC inválido"}, entries[0].Details)
}

func TestApply_RechazoOpcional(t *testing.T) {
	e := newEnv()
	e.props[entity.Key("Rejection", "Active")] = "true"
	e.build()
	ctx := context.Background()

	doc := pendingDoc(e, "d1")
	o := e.interp.Apply(ctx, e.props, doc, &entity.Acknowledgment{Code: "2017"})
	require.True(t, o.IsOk())
	assert.Equal(t, entity.StatusRejected, e.docs.status("d1"))

	// fuera del rango 2000-3999 no hay transición
	other := pendingDoc(e, "d2")
	o = e.interp.Apply(ctx, e.props, other, &entity.Acknowledgment{Code: "4252"})
	assert.True(t, o.IsSkipped())
	assert.Equal(t, entity.StatusPending, e.docs.status("d2"))
}

func TestApply_ConstanciaVacia(t *testing.T) {
	e := newEnv().build()
	doc := pendingDoc(e, "d1")

	o := e.interp.Apply(context.Background(), e.props, doc, nil)
	require.True(t, o.IsFailed())
	assert.ErrorIs(t, o.Err, domain.ErrMalformedResponse)
	assert.Equal(t, entity.StatusPending, e.docs.status("d1"))
}

func TestTransition_NoPermitida(t *testing.T) {
	e := newEnv().build()
	doc := pendingDoc(e, "d1")
	ctx := context.Background()

	require.NoError(t, e.interp.Transition(ctx, doc, entity.StatusAborted))
	err := e.interp.Transition(ctx, doc, entity.StatusSuccessful)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, entity.StatusAborted, e.docs.status("d1"))
}
