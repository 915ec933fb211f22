package models

import (
	"time"
)

// UserInfo is the identity and billing snapshot returned by the backend.
// The client only ever holds a cached copy.
type UserInfo struct {
	ID                int64      `json:"id" yaml:"id"`
	Email             string     `json:"email" yaml:"email"`
	AvatarURL         string     `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	Balance           float64    `json:"balance" yaml:"balance"`
	CommissionBalance float64    `json:"commission_balance" yaml:"commission_balance"`
	PlanID            *int64     `json:"plan_id,omitempty" yaml:"plan_id,omitempty"`
	ExpiredAt         *Timestamp `json:"expired_at,omitempty" yaml:"expired_at,omitempty"`
	CreatedAt         Timestamp  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt         Timestamp  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func (u *UserInfo) GetName() string {
	if u == nil || len(u.Email) == 0 {
		return "Unknown"
	}
	return u.Email
}

func (u *UserInfo) HasPlan() bool {
	return u != nil && u.PlanID != nil && *u.PlanID > 0
}

// GetExpiry returns the plan expiry, or nil when the plan never expires
// or no plan is attached.
func (u *UserInfo) GetExpiry() *time.Time {
	if u == nil || u.ExpiredAt == nil || u.ExpiredAt.IsZero() {
		return nil
	}
	expiry := u.ExpiredAt.Time()
	return &expiry
}

func (u *UserInfo) IsExpired() bool {
	expiry := u.GetExpiry()
	if expiry == nil {
		return false
	}
	return time.Now().After(*expiry)
}

// Balances are stored in cents by the backend
func (u *UserInfo) GetBalance() float64 {
	if u == nil {
		return 0
	}
	return u.Balance / 100
}

func (u *UserInfo) GetCommissionBalance() float64 {
	if u == nil {
		return 0
	}
	return u.CommissionBalance / 100
}

func (u *UserInfo) Clone() *UserInfo {
	if u == nil {
		return nil
	}
	clone := *u
	if u.PlanID != nil {
		planID := *u.PlanID
		clone.PlanID = &planID
	}
	if u.ExpiredAt != nil {
		expiredAt := *u.ExpiredAt
		clone.ExpiredAt = &expiredAt
	}
	return &clone
}
