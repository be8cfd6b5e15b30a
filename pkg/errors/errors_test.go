package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := UnknownOrder.Explain("no current request id for order %s", "X")
	assert.True(t, Is(err, UnknownOrder))
	assert.False(t, Is(err, OrderNotFound))
	assert.Equal(t, KindUnknownOrder, KindOf(err))

	wrapped := fmt.Errorf("send replace: %w", err)
	assert.True(t, Is(wrapped, UnknownOrder))
	assert.Equal(t, KindUnknownOrder, KindOf(wrapped))
}

func TestExplainDoesNotMutateSentinel(t *testing.T) {
	_ = MissingField.Explain("tag 11").WithField(KindMissingField, "ClOrdID", "")
	assert.Empty(t, MissingField.Message)
	assert.Empty(t, MissingField.Fields)
}

func TestProblemMapping(t *testing.T) {
	p := NewProblem(OrderNotFound.Explain("cl_ord_id=X_9"), "/api/v1/orders/X")
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, TypeNotFound, p.Type)
	assert.Equal(t, "cl_ord_id=X_9", p.Detail)
	assert.Equal(t, KindOrderNotFound, p.Kind)

	p = NewProblem(DuplicateOrder.Explain("order X is already registered"), "/api/v1/orders")
	assert.Equal(t, http.StatusConflict, p.Status)
	assert.Equal(t, TypeConflict, p.Type)
	assert.Equal(t, KindDuplicateOrder, p.Kind)

	p = NewProblem(fmt.Errorf("boom"), "/")
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "boom", p.Detail)
}
