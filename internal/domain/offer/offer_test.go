package offer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfferCheckOpen(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		status  Status
		expiry  *time.Time
		wantErr error
	}{
		{"validated without expiry", StatusValidated, nil, nil},
		{"validated expiring tomorrow", StatusValidated, &tomorrow, nil},
		{"validated expiring today", StatusValidated, &today, nil},
		{"validated expired yesterday", StatusValidated, &yesterday, ErrExpired},
		{"pending validation", StatusPendingValidation, nil, ErrNotOpen},
		{"closed", StatusClosed, &tomorrow, ErrNotOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Offer{ID: "o", Status: tt.status, Expiry: tt.expiry}
			err := o.CheckOpen(now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.True(t, o.AcceptsApplications(now))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, o.AcceptsApplications(now))
		})
	}
}

func TestOfferOwnership(t *testing.T) {
	o := &Offer{CompanyID: "c1"}
	assert.True(t, o.OwnedBy("c1"))
	assert.False(t, o.OwnedBy("c2"))
}
