package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parikshitsharma2001/event-ticketing-and-seat-reservation/internal/domain/seat"
)

// TestScenario_ReserveAllocateFlow は仮押さえから割り当てまでの一連の流れを検証する
func TestScenario_ReserveAllocateFlow(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)

	// 1. 座席作成
	seats := env.createSeats(t, "event-1", "50", "75", "25")
	a, err := env.seats.GetAvailability(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 3, a.AvailableSeats)

	// 2. 仮押さえ
	res, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-1", SeatIDs: idsOf(seats)})
	require.NoError(t, err)
	assert.Equal(t, "150.00", res.TotalPrice.StringFixed(2))
	for _, s := range res.Seats {
		assert.Equal(t, res.ExpiresAt, *s.ExpiresAt())
	}

	a, err = env.seats.GetAvailability(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, a.AvailableSeats)
	assert.Equal(t, 3, a.ReservedSeats)

	// 3. 注文確定
	env.clock.Advance(5 * time.Minute)
	_, err = env.reservations.Allocate(ctx, AllocateInput{SeatIDs: idsOf(seats), OrderID: "order-1", HolderID: "user-1"})
	require.NoError(t, err)

	byOrder, err := env.seats.GetSeatsByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, byOrder, 3)

	// 4. 期限を過ぎても割当済みの座席は回収されない
	env.clock.Advance(time.Hour)
	n, err := env.reservations.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	a, err = env.seats.GetAvailability(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 3, a.AllocatedSeats)
}

// TestScenario_NoDoubleReservation は同じ座席への同時仮押さえで成功が1件だけであることを検証する
func TestScenario_NoDoubleReservation(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	seats := env.createSeats(t, "event-1", "10", "10")

	const workers = 20
	var (
		success  int64
		conflict int64
		wg       sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := idsOf(seats)
			if i%2 == 1 {
				ids = []string{ids[1], ids[0]}
			}
			_, err := env.reservations.Reserve(ctx, ReserveInput{
				EventID:  "event-1",
				HolderID: fmt.Sprintf("user-%d", i),
				SeatIDs:  ids,
			})
			switch {
			case err == nil:
				atomic.AddInt64(&success, 1)
			case assert.ErrorIs(t, err, seat.ErrSeatNotAvailable):
				atomic.AddInt64(&conflict, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), success)
	assert.Equal(t, int64(workers-1), conflict)

	holder0 := env.get(t, seats[0].ID).HolderID()
	holder1 := env.get(t, seats[1].ID).HolderID()
	require.NotNil(t, holder0)
	require.NotNil(t, holder1)
	assert.Equal(t, *holder0, *holder1, "両座席は同じユーザーが保持する")
	assert.Equal(t, 0, env.locker.Len())
}

// TestScenario_OverlappingSetsDoNotDeadlock は {1,2} と {2,1} の同時操作が必ず終了することを検証する
func TestScenario_OverlappingSetsDoNotDeadlock(t *testing.T) {
	env := setupTestEnv(t)
	seats := env.createSeats(t, "event-1", "10", "10", "10")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sets := [][]string{
		{seats[0].ID, seats[1].ID},
		{seats[1].ID, seats[0].ID},
		{seats[2].ID, seats[1].ID, seats[0].ID},
	}

	const rounds = 50
	var wg sync.WaitGroup
	for i, ids := range sets {
		wg.Add(1)
		go func(i int, ids []string) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				_, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: fmt.Sprintf("user-%d", i), SeatIDs: ids})
				if err == nil {
					_, err = env.reservations.Release(ctx, ReleaseInput{SeatIDs: ids})
					assert.NoError(t, err)
				}
			}
		}(i, ids)
	}
	wg.Wait()

	require.NoError(t, ctx.Err(), "全ての操作がタイムアウト前に終了する")
	assert.Equal(t, 0, env.locker.Len())
	for _, s := range seats {
		assert.Equal(t, seat.StatusAvailable, env.get(t, s.ID).Status())
	}
}

// TestScenario_HoldExpiry は期限直前は回収されず、期限後に回収されることを検証する
func TestScenario_HoldExpiry(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	seats := env.createSeats(t, "event-1", "10", "10")

	_, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-1", SeatIDs: idsOf(seats)})
	require.NoError(t, err)

	// T+14:59 ではまだ有効
	env.clock.Set(baseTime.Add(14*time.Minute + 59*time.Second))
	n, err := env.reservations.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, seat.StatusReserved, env.get(t, seats[0].ID).Status())

	// T+15:00 ちょうども有効
	env.clock.Set(baseTime.Add(15 * time.Minute))
	n, err = env.reservations.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// T+15:01 で回収される
	env.clock.Set(baseTime.Add(15*time.Minute + time.Second))
	n, err = env.reservations.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for _, s := range seats {
		st := env.get(t, s.ID)
		assert.Equal(t, seat.StatusAvailable, st.Status())
		assert.Nil(t, st.HolderID())
		assert.Nil(t, st.ExpiresAt())
	}

	// 回収後は別ユーザーが仮押さえできる
	_, err = env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-2", SeatIDs: idsOf(seats)})
	require.NoError(t, err)

	events := env.publisher.Events()
	require.Len(t, events, 3)
	assert.Equal(t, seat.ChangeReclaimed, events[1].Kind)
	assert.ElementsMatch(t, idsOf(seats), events[1].SeatIDs)
}

// TestScenario_ExpiredHoldCannotBeAllocated は期限切れ後に回収された座席は確定できないことを検証する
func TestScenario_ExpiredHoldCannotBeAllocated(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	seats := env.createSeats(t, "event-1", "10")

	_, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-1", SeatIDs: idsOf(seats)})
	require.NoError(t, err)
	env.clock.Advance(16 * time.Minute)
	_, err = env.reservations.ReclaimExpired(ctx)
	require.NoError(t, err)

	_, err = env.reservations.Allocate(ctx, AllocateInput{SeatIDs: idsOf(seats), OrderID: "order-1"})

	assert.ErrorIs(t, err, seat.ErrSeatNotReserved)
	assert.Equal(t, seat.StatusAvailable, env.get(t, seats[0].ID).Status())
}

// TestScenario_ReserveReleaseRoundTrip は仮押さえと解放で version と updated_at 以外が元に戻ることを検証する
func TestScenario_ReserveReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := setupTestEnv(t)
	seats := env.createSeats(t, "event-1", "10", "20")
	before := []*seat.Seat{env.get(t, seats[0].ID), env.get(t, seats[1].ID)}

	_, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-1", SeatIDs: idsOf(seats)})
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.reservations.Release(ctx, ReleaseInput{SeatIDs: idsOf(seats)})
	require.NoError(t, err)

	for i, s := range seats {
		after := env.get(t, s.ID)
		assert.Greater(t, after.Version, before[i].Version)
		assert.NotEqual(t, before[i].UpdatedAt, after.UpdatedAt)

		after.Version = before[i].Version
		after.UpdatedAt = before[i].UpdatedAt
		assert.Equal(t, before[i], after)
	}
}

// TestScenario_ConcurrentReclaimAndAllocate は回収と確定が競合しても座席が一貫した状態になることを検証する
func TestScenario_ConcurrentReclaimAndAllocate(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		env := setupTestEnv(t)
		seats := env.createSeats(t, "event-1", "10", "10")
		_, err := env.reservations.Reserve(ctx, ReserveInput{EventID: "event-1", HolderID: "user-1", SeatIDs: idsOf(seats)})
		require.NoError(t, err)
		env.clock.Advance(16 * time.Minute)

		var (
			wg          sync.WaitGroup
			allocateErr error
			reclaimed   int
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, allocateErr = env.reservations.Allocate(ctx, AllocateInput{SeatIDs: idsOf(seats), OrderID: "order-1"})
		}()
		go func() {
			defer wg.Done()
			reclaimed, _ = env.reservations.ReclaimExpired(ctx)
		}()
		wg.Wait()

		// 確定が先なら回収対象外、回収が先なら確定は失敗する
		if allocateErr == nil {
			assert.Zero(t, reclaimed)
			for _, s := range seats {
				assert.Equal(t, seat.StatusAllocated, env.get(t, s.ID).Status())
			}
		} else {
			assert.ErrorIs(t, allocateErr, seat.ErrSeatNotReserved)
			assert.Equal(t, 2, reclaimed)
			for _, s := range seats {
				assert.Equal(t, seat.StatusAvailable, env.get(t, s.ID).Status())
			}
		}
	}
}
