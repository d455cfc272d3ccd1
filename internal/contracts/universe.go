package contracts

import "time"

// Instrument is an exchange-qualified stock identifier plus display name.
// Immutable within a run.
type Instrument struct {
	Code   string `json:"code"`             // 종목코드 (e.g. "005930")
	Name   string `json:"name"`             // 종목명
	Market string `json:"market,omitempty"` // KOSPI, KOSDAQ
}

// Symbol returns the exchange-qualified symbol (e.g. "247540.KQ")
func (i Instrument) Symbol() string {
	switch i.Market {
	case "KOSDAQ":
		return i.Code + ".KQ"
	case "KOSPI":
		return i.Code + ".KS"
	default:
		return i.Code
	}
}

// Universe represents candidate instruments passed from S1 to S2
// ⭐ SSOT: S1 → S2 후보 종목 전달
type Universe struct {
	Date        time.Time         `json:"date"`
	Instruments []Instrument      `json:"instruments"` // 랭킹 순서 유지
	Excluded    map[string]string `json:"excluded"`    // 제외 종목: 사유
	Source      string            `json:"source"`      // "ranking" or "fallback"
}

// Contains checks if a stock code is in the universe
func (u *Universe) Contains(code string) bool {
	for _, inst := range u.Instruments {
		if inst.Code == code {
			return true
		}
	}
	return false
}

// Codes returns instrument codes in universe order
func (u *Universe) Codes() []string {
	codes := make([]string, 0, len(u.Instruments))
	for _, inst := range u.Instruments {
		codes = append(codes, inst.Code)
	}
	return codes
}

// Count returns the number of candidate instruments
func (u *Universe) Count() int {
	return len(u.Instruments)
}
