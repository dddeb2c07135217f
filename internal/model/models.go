// Package model holds the domain entities and wire DTOs shared across
// Profecia's core packages.
package model

import "time"

// ── Sides ────────────────────────────────────────────

// Side is one of the two binary outcomes of a market.
type Side string

const (
	SideA Side = "option_a"
	SideB Side = "option_b"
)

// Opposite is total: every Side maps to exactly one other Side.
func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) Valid() bool { return s == SideA || s == SideB }

// SideDto is the wire representation of Side (§9: tagged variant,
// distinct storage/wire/logic mappings).
type SideDto string

const (
	SideDtoOptionA SideDto = "OptionA"
	SideDtoOptionB SideDto = "OptionB"
)

func (s Side) ToDto() SideDto {
	if s == SideA {
		return SideDtoOptionA
	}
	return SideDtoOptionB
}

func (d SideDto) ToSide() Side {
	if d == SideDtoOptionA {
		return SideA
	}
	return SideB
}

// ── Roles ────────────────────────────────────────────

// Role gates the admin-only operations in MOD-EVENT and MOD-RESOLVE
// (event/market creation, resolution).
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ── Money ────────────────────────────────────────────

// Cents is an intra-system monetary amount in whole cents.
type Cents int64

// MicroCents is the ledger-boundary unit: cents × 10,000. A distinct
// type from Cents so the two units cannot be mixed without an
// explicit conversion.
type MicroCents int64

const microPerCent = 10_000

func (c Cents) ToMicro() MicroCents { return MicroCents(int64(c) * microPerCent) }

func (m MicroCents) ToCents() Cents { return Cents(int64(m) / microPerCent) }

// ── Entities ─────────────────────────────────────────

type User struct {
	ID           string
	Username     string
	Role         Role
	WalletSecret string // base58-encoded, created atomically with the user, never rotated
	LastAirdrop  *time.Time
	CreatedAt    time.Time
}

type Identity struct {
	UserID       string
	PasswordHash string
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Valid(now time.Time) bool { return s.ExpiresAt.After(now) }

type Event struct {
	ID          string
	DisplayName string
}

type Market struct {
	ID             string
	EventID        string
	DisplayName    string
	OptionAName    string
	OptionBName    string
	Rules          string
	YesMint        string // base58-encoded mint pubkey
	NoMint         string
	ResolvedOption *Side
	CreatedAt      time.Time
}

func (m Market) Resolved() bool { return m.ResolvedOption != nil }

// BuyOrder is a resting limit order. It only exists while its market
// is unresolved.
type BuyOrder struct {
	ID            string
	MarketID      string
	UserID        string
	Side          Side
	Shares        int64
	PricePerShare int // 1..=99
	CreatedAt     time.Time
}

// Position is the (market, user, side, price) share aggregate. Cost
// basis per share is PricePerShare; payout per share on a winning
// resolution is always 100 cents.
type Position struct {
	ID            string
	MarketID      string
	UserID        string
	Side          Side
	Shares        int64
	PricePerShare int
}

// MarketSnapshot is a time-stamped sample of implied probabilities.
// Either both percentages are present and sum to 100, or both are nil.
type MarketSnapshot struct {
	ID                string
	MarketID          string
	RecordedAt        time.Time
	OptionAPercentage *int64
	OptionBPercentage *int64
}

// ── Wire DTOs ────────────────────────────────────────

type UserDto struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func UserToDto(u User) UserDto { return UserDto{ID: u.ID, Username: u.Username, Role: u.Role} }

type MarketDto struct {
	ID             string   `json:"id"`
	EventID        string   `json:"eventId"`
	DisplayName    string   `json:"displayName"`
	OptionAName    string   `json:"optionAName"`
	OptionBName    string   `json:"optionBName"`
	Rules          string   `json:"rules"`
	ResolvedOption *SideDto `json:"resolvedOption,omitempty"`
}

func MarketToDto(m Market) MarketDto {
	dto := MarketDto{
		ID: m.ID, EventID: m.EventID, DisplayName: m.DisplayName,
		OptionAName: m.OptionAName, OptionBName: m.OptionBName, Rules: m.Rules,
	}
	if m.ResolvedOption != nil {
		d := m.ResolvedOption.ToDto()
		dto.ResolvedOption = &d
	}
	return dto
}

type EventDto struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Markets     []MarketDto `json:"markets"`
}

type BuyOrderDto struct {
	ID            string  `json:"id"`
	MarketID      string  `json:"marketId"`
	UserID        string  `json:"userId"`
	Shares        int64   `json:"shares"`
	PricePerShare int     `json:"pricePerShare"`
	Option        SideDto `json:"option"`
}

func BuyOrderToDto(o BuyOrder) BuyOrderDto {
	return BuyOrderDto{
		ID: o.ID, MarketID: o.MarketID, UserID: o.UserID,
		Shares: o.Shares, PricePerShare: o.PricePerShare, Option: o.Side.ToDto(),
	}
}

type PlaceBuyOrderReq struct {
	MarketID      string  `json:"marketId"`
	Shares        int64   `json:"shares"`
	PricePerShare int     `json:"pricePerShare"`
	Option        SideDto `json:"option"`
}

type PositionDto struct {
	MarketID      string  `json:"marketId"`
	UserID        string  `json:"userId"`
	Shares        int64   `json:"shares"`
	PricePerShare int     `json:"pricePerShare"`
	Option        SideDto `json:"option"`
}

func PositionToDto(p Position) PositionDto {
	return PositionDto{
		MarketID: p.MarketID, UserID: p.UserID, Shares: p.Shares,
		PricePerShare: p.PricePerShare, Option: p.Side.ToDto(),
	}
}

type MarketSnapshotPointDto struct {
	RecordedAt  string            `json:"recordedAt"`
	Percentages map[string]*int64 `json:"percentages"`
}

type EventChartDto struct {
	Points []MarketSnapshotPointDto `json:"points"`
}

type PercentagesDto struct {
	MarketID          string `json:"marketId"`
	OptionAPercentage *int64 `json:"optionAPercentage"`
	OptionBPercentage *int64 `json:"optionBPercentage"`
}
