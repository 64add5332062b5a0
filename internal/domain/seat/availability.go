package seat

// Availability はイベント単位の座席集計
type Availability struct {
	EventID          string         `json:"event_id"`
	TotalSeats       int            `json:"total_seats"`
	AvailableSeats   int            `json:"available_seats"`
	ReservedSeats    int            `json:"reserved_seats"`
	AllocatedSeats   int            `json:"allocated_seats"`
	BlockedSeats     int            `json:"blocked_seats"`
	AvailableSeatIDs []string       `json:"available_seat_ids"`
	BySection        map[string]int `json:"availability_by_section"`
}

// Summarize は座席一覧から集計を作成する
func Summarize(eventID string, seats []*Seat) *Availability {
	a := &Availability{
		EventID:          eventID,
		TotalSeats:       len(seats),
		AvailableSeatIDs: []string{},
		BySection:        map[string]int{},
	}
	for _, s := range seats {
		switch s.Status() {
		case StatusAvailable:
			a.AvailableSeats++
			a.AvailableSeatIDs = append(a.AvailableSeatIDs, s.ID)
			a.BySection[s.Section]++
		case StatusReserved:
			a.ReservedSeats++
		case StatusAllocated:
			a.AllocatedSeats++
		case StatusBlocked:
			a.BlockedSeats++
		}
	}
	return a
}
