// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/holomush/portal/pkg/errutil"
)

func TestAdvisoryLocker_LockAndUnlock(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`).
		WithArgs("portal.roster:acpd").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectRollback()

	unlock, err := NewAdvisoryLocker(mock).Lock(context.Background(), "acpd")
	require.NoError(t, err)
	unlock()
	unlock()
}

func TestAdvisoryLocker_BeginFails(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	_, err := NewAdvisoryLocker(mock).Lock(context.Background(), "acpd")
	errutil.AssertErrorCode(t, err, "ADVISORY_LOCK_FAILED")
	errutil.AssertErrorContext(t, err, "operation", "begin")
}

func TestAdvisoryLocker_AcquireFailsRollsBack(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnError(context.Canceled)
	mock.ExpectRollback()

	_, err := NewAdvisoryLocker(mock).Lock(context.Background(), "ems")
	errutil.AssertErrorCode(t, err, "ADVISORY_LOCK_FAILED")
	errutil.AssertErrorContext(t, err, "department", "ems")
}
