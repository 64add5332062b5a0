package application

import (
	"errors"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

// validateSeatIDs は座席ID一覧が空でなく重複もないことを確認する
func validateSeatIDs(ids []string) error {
	if len(ids) == 0 {
		return seat.ErrSeatIDsRequired
	}
	seen := make(map[string]struct{}, len(ids))
	var dups []string
	for _, id := range ids {
		if id == "" {
			return seat.ErrSeatIDsRequired
		}
		if _, ok := seen[id]; ok {
			dups = append(dups, id)
			continue
		}
		seen[id] = struct{}{}
	}
	if len(dups) > 0 {
		return seat.ErrDuplicateSeatIDs.WithSeats(dups, nil)
	}
	return nil
}

func missingIDs(ids []string, seats []*seat.Seat) []string {
	found := make(map[string]struct{}, len(seats))
	for _, st := range seats {
		found[st.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// inRequestOrder は座席を呼び出し元が指定した順に並べ替える
func inRequestOrder(ids []string, seats []*seat.Seat) []*seat.Seat {
	byID := make(map[string]*seat.Seat, len(seats))
	for _, st := range seats {
		byID[st.ID] = st
	}
	ordered := make([]*seat.Seat, 0, len(seats))
	for _, id := range ids {
		if st, ok := byID[id]; ok {
			ordered = append(ordered, st)
		}
	}
	return ordered
}

func filterSeats(seats []*seat.Seat, match func(*seat.Seat) bool) []*seat.Seat {
	var out []*seat.Seat
	for _, st := range seats {
		if match(st) {
			out = append(out, st)
		}
	}
	return out
}

func seatIDsOf(seats []*seat.Seat) []string {
	ids := make([]string, len(seats))
	for i, st := range seats {
		ids[i] = st.ID
	}
	return ids
}

func seatNumbersOf(seats []*seat.Seat) []string {
	numbers := make([]string, len(seats))
	for i, st := range seats {
		numbers[i] = st.SeatNumber
	}
	return numbers
}

// asSeatError は種別の付いていないエラーを Internal として包む
func asSeatError(msg string, err error) error {
	var se *seat.Error
	if errors.As(err, &se) {
		return err
	}
	return seat.Internal(msg, err)
}
