package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/FreshGuard/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeProductNotFound, "product not found")
	require.NotNil(t, ae)
	assert.Equal(t, errors.ErrCodeProductNotFound, ae.Code)
	assert.Equal(t, "product not found", ae.Message)
	assert.Empty(t, ae.Detail)
	assert.Nil(t, ae.Cause)
	assert.Contains(t, ae.Stack, "errors_test.go")
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeActionAlreadyUndone, "action already undone")
	assert.Equal(t, "[FRESH_013] action already undone", ae.Error())
	assert.Equal(t, "[FRESH_013] action already undone: id=a1", ae.WithDetail("id=a1").Error())
}

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.NotFound("product not found")
	withDetail := base.WithDetail("id=p1")
	assert.Empty(t, base.Detail)
	assert.Equal(t, "id=p1", withDetail.Detail)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.CodeDBQueryError, "query"))
	})

	t.Run("cause is reachable", func(t *testing.T) {
		root := stderrors.New("connection reset")
		wrapped := errors.Wrap(root, errors.CodeDBQueryError, "load ledger")
		assert.True(t, stderrors.Is(wrapped, root))
		assert.Equal(t, errors.CodeDBQueryError, wrapped.Code)
	})

	t.Run("unknown code keeps inner code", func(t *testing.T) {
		inner := errors.New(errors.ErrCodeActionNotFound, "action not found")
		wrapped := errors.Wrap(inner, errors.CodeUnknown, "undo")
		assert.Equal(t, errors.ErrCodeActionNotFound, wrapped.Code)
	})

	t.Run("unknown code on plain error is a dependency failure", func(t *testing.T) {
		wrapped := errors.Wrap(stderrors.New("disk full"), errors.CodeUnknown, "save")
		assert.Equal(t, errors.ErrCodeExpiryDependency, wrapped.Code)
	})
}

func TestKindHelpers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		kind errors.ErrorCode
	}{
		{"validation", errors.Validation("new expiry date is required"), errors.ErrCodeExpiryValidation},
		{"date required", errors.New(errors.ErrCodeExpiryDateRequired, "x"), errors.ErrCodeExpiryValidation},
		{"not found", errors.NotFound("x"), errors.ErrCodeExpiryNotFound},
		{"action not found", errors.New(errors.ErrCodeActionNotFound, "x"), errors.ErrCodeExpiryNotFound},
		{"domain", errors.Domain("x"), errors.ErrCodeExpiryDomain},
		{"already undone", errors.New(errors.ErrCodeActionAlreadyUndone, "x"), errors.ErrCodeExpiryDomain},
		{"dependency", errors.Dependency(stderrors.New("down"), "x"), errors.ErrCodeExpiryDependency},
		{"plain error", stderrors.New("boom"), errors.ErrCodeExpiryDependency},
		{"fmt wrapped domain", fmt.Errorf("undo: %w", errors.Domain("x")), errors.ErrCodeExpiryDomain},
		{"internal over not found", errors.Wrap(errors.NotFound("x"), errors.CodeInternal, "y"), errors.ErrCodeExpiryNotFound},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, errors.KindOf(tc.err))
		})
	}

	assert.True(t, errors.IsValidation(errors.Validation("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeProductNotFound, "x")))
	assert.True(t, errors.IsDomain(errors.New(errors.ErrCodeProductDeactivated, "x")))
	assert.True(t, errors.IsDependency(errors.New(errors.ErrCodeNotificationFailed, "x")))
	assert.False(t, errors.IsDomain(nil))
	assert.Equal(t, errors.CodeOK, errors.KindOf(nil))
}

func TestIsCodeAndGetCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("handler: %w", errors.New(errors.ErrCodeLockNotAcquired, "busy"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeLockNotAcquired))
	assert.False(t, errors.IsCode(err, errors.ErrCodeInternal))
	assert.Equal(t, errors.ErrCodeLockNotAcquired, errors.GetCode(err))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
}
