package audit_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/service/audit"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func TestRecordGetList(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := audit.New(store, store)

	first, err := svc.Record(ctx, audit.Input{Action: "  export.started ", Details: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "export.started", first.Action)
	assert.False(t, first.Timestamp.IsZero())

	_, err = svc.Record(ctx, audit.Input{Action: "export.finished"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "csv", got.Details)

	all, err := svc.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "export.finished", all[0].Action)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := audit.New(store, store)
	nilUser := uuid.Nil

	cases := map[string]audit.Input{
		"empty action":  {Action: "  "},
		"long action":   {Action: strings.Repeat("x", 256)},
		"long details":  {Action: "a", Details: strings.Repeat("x", 4097)},
		"nil uuid user":  {Action: "a", UserID: &nilUser},
	}
	for name, in := range cases {
		_, err := svc.Record(ctx, in)
		assert.ErrorIs(t, err, errs.ErrInvalid, name)
	}

	_, err := svc.List(ctx, -1, 10)
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.List(ctx, 0, audit.MaxLimit+1)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
