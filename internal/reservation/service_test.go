package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-booking-backend/internal/events"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/user"
)

func createReq(start, end string) CreateRequest {
	return CreateRequest{SpaceID: loftID, TenantID: tenantUserID, StartDate: day(start), EndDate: day(end)}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds and derives nights and price", func(t *testing.T) {
		f := newFixture()
		res, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		require.NoError(t, err)

		assert.NotEmpty(t, res.ID)
		assert.Equal(t, StatusPending, res.Status)
		assert.Equal(t, 5, res.Nights())
		assert.Equal(t, int64(50000), res.TotalPrice())
		assert.Equal(t, ownerUserID, res.OwnerID)
		assert.Equal(t, []string{events.ReservationCreated}, f.pub.names())
	})

	t.Run("timestamps are truncated to dates", func(t *testing.T) {
		f := newFixture()
		req := createReq("2025-06-10", "2025-06-12")
		req.StartDate = req.StartDate.Add(15 * time.Hour)
		res, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, day("2025-06-10"), res.StartDate)
	})

	t.Run("boundary overlap with confirmed reservation conflicts", func(t *testing.T) {
		f := newFixture()
		f.repo.seed(loftID, otherUserID, "2025-06-14", "2025-06-20", StatusConfirmed)

		_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		assert.ErrorIs(t, err, ErrDatesUnavailable)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Contains(t, err.Error(), "[2025-06-14, 2025-06-20]")
		assert.Equal(t, 1, f.repo.activeCount(loftID))
		assert.Empty(t, f.pub.names())
	})

	t.Run("touching endpoints conflict", func(t *testing.T) {
		f := newFixture()
		f.repo.seed(loftID, otherUserID, "2025-06-15", "2025-06-20", StatusPending)

		_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		assert.ErrorIs(t, err, ErrDatesUnavailable)
	})

	t.Run("released reservations do not block", func(t *testing.T) {
		f := newFixture()
		f.repo.seed(loftID, otherUserID, "2025-06-12", "2025-06-18", StatusCancelled)
		f.repo.seed(loftID, otherUserID, "2025-06-08", "2025-06-11", StatusRejected)
		f.repo.seed(loftID, otherUserID, "2025-06-14", "2025-06-16", StatusCompleted)

		_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		require.NoError(t, err)
	})

	t.Run("other spaces do not block", func(t *testing.T) {
		f := newFixture()
		f.repo.seed("space-2", otherUserID, "2025-06-10", "2025-06-15", StatusConfirmed)

		_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		require.NoError(t, err)
	})

	t.Run("calendar block conflicts", func(t *testing.T) {
		f := newFixture()
		f.blocks.add(loftID, "2025-06-15", "2025-06-16")

		_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
		assert.ErrorIs(t, err, ErrDatesUnavailable)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture()
		tests := []struct {
			name string
			req  CreateRequest
			want error
		}{
			{"start equals end", createReq("2025-06-10", "2025-06-10"), ErrInvalidDateRange},
			{"end before start", createReq("2025-06-10", "2025-06-05"), ErrInvalidDateRange},
			{"start in past", createReq("2025-05-31", "2025-06-03"), ErrStartInPast},
			{"missing space", CreateRequest{TenantID: tenantUserID, StartDate: day("2025-06-10"), EndDate: day("2025-06-11")}, ErrInvalidInput},
			{"unknown space", CreateRequest{SpaceID: "nope", TenantID: tenantUserID, StartDate: day("2025-06-10"), EndDate: day("2025-06-11")}, ErrSpaceNotFound},
			{"unknown tenant", CreateRequest{SpaceID: loftID, TenantID: "ghost", StartDate: day("2025-06-10"), EndDate: day("2025-06-11")}, ErrTenantNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Create(ctx, tt.req)
				assert.ErrorIs(t, err, tt.want)
			})
		}
		assert.Equal(t, 0, f.repo.activeCount(loftID))
	})

	t.Run("store failures are never read as free dates", func(t *testing.T) {
		tests := []struct {
			name  string
			setup func(f *fixture)
		}{
			{"reservations query fails", func(f *fixture) {
				f.repo.activeErr = apperror.Storage(errors.New("connection reset"), "list active reservations failed")
			}},
			{"blocks query fails", func(f *fixture) {
				f.blocks.err = apperror.Storage(errors.New("connection reset"), "list calendar blocks failed")
			}},
			{"space lock unavailable", func(f *fixture) {
				f.svc.locker = failingLocker{err: errors.New("too many connections")}
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				tt.setup(f)

				_, err := f.svc.Create(ctx, createReq("2025-06-10", "2025-06-15"))
				require.Error(t, err)
				assert.True(t, apperror.IsKind(err, apperror.KindStorage), "got %v", err)
				assert.NotErrorIs(t, err, ErrDatesUnavailable)
				assert.Equal(t, 0, f.repo.activeCount(loftID))
				assert.Empty(t, f.pub.names())
			})
		}
	})

	t.Run("today is bookable", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, createReq("2025-06-01", "2025-06-02"))
		require.NoError(t, err)
	})
}

func TestCreateConcurrentSameRange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.Create(ctx, createReq("2025-07-01", "2025-07-05"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDatesUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, f.repo.activeCount(loftID))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("owner confirms pending", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

		got, err := f.svc.UpdateStatus(ctx, r.ID, StatusConfirmed, asOwner)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, got.Status)
		assert.Equal(t, []string{events.ReservationStatusChanged}, f.pub.names())
	})

	t.Run("nobody completes a pending reservation", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

		for _, actor := range []user.Actor{asOwner, asTenant, asAdmin} {
			_, err := f.svc.UpdateStatus(ctx, r.ID, StatusCompleted, actor)
			assert.ErrorIs(t, err, ErrInvalidTransition, actor.UserID)
		}
	})

	t.Run("tenant cannot confirm", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusConfirmed, asTenant)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unrelated user is denied", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusConfirmed, asStranger)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

		_, err := f.svc.UpdateStatus(ctx, r.ID, Status("ARCHIVED"), asAdmin)
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("owner cannot leave a terminal state", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusRejected)

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusPending, asOwner)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("admin revives released reservation when dates are free", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusCancelled)

		got, err := f.svc.UpdateStatus(ctx, r.ID, StatusConfirmed, asAdmin)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, got.Status)
	})

	t.Run("admin revival cannot double-book", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusCancelled)
		f.repo.seed(loftID, otherUserID, "2025-06-11", "2025-06-14", StatusConfirmed)

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusPending, asAdmin)
		assert.ErrorIs(t, err, ErrDatesUnavailable)
		assert.Equal(t, 1, f.repo.activeCount(loftID))
	})

	t.Run("lost race is reported as invalid transition", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)
		f.repo.beforeUpdate = func(id string) {
			f.repo.mu.Lock()
			f.repo.rows[id].Status = StatusRejected
			f.repo.mu.Unlock()
		}

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusConfirmed, asOwner)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.ErrorIs(t, err, ErrStatusChanged)

		got, err := f.repo.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, got.Status)
	})

	t.Run("missing reservation", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.UpdateStatus(ctx, "nope", StatusConfirmed, asAdmin)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant inside the cut-off is rejected", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-02", "2025-06-05", StatusConfirmed)

		_, err := f.svc.Cancel(ctx, r.ID, asTenant)
		assert.ErrorIs(t, err, ErrCancellationWindow)
		assert.True(t, apperror.IsKind(err, apperror.KindCancellationWindow))

		got, _ := f.repo.GetByID(ctx, r.ID)
		assert.Equal(t, StatusConfirmed, got.Status)
	})

	t.Run("cut-off compares against the current instant", func(t *testing.T) {
		tests := []struct {
			name  string
			now   time.Time
			start string
			want  error
		}{
			{"tomorrow just after midnight", time.Date(2025, 6, 1, 0, 1, 0, 0, time.UTC), "2025-06-02", ErrCancellationWindow},
			{"day after tomorrow late evening", time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC), "2025-06-03", nil},
			{"day after tomorrow past the eve", time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC), "2025-06-03", ErrCancellationWindow},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture()
				f.svc.now = func() time.Time { return tt.now }
				r := f.repo.seed(loftID, tenantUserID, tt.start, "2025-06-10", StatusConfirmed)

				_, err := f.svc.Cancel(ctx, r.ID, asTenant)
				if tt.want == nil {
					require.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("tenant three days ahead succeeds and releases the dates", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-04", "2025-06-06", StatusConfirmed)

		got, err := f.svc.Cancel(ctx, r.ID, asTenant)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.Equal(t, 0, f.repo.activeCount(loftID))

		_, err = f.svc.Create(ctx, CreateRequest{
			SpaceID: loftID, TenantID: otherUserID, StartDate: day("2025-06-04"), EndDate: day("2025-06-06"),
		})
		require.NoError(t, err)
	})

	t.Run("tenant cancels pending reservation", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-20", "2025-06-22", StatusPending)

		got, err := f.svc.Cancel(ctx, r.ID, asTenant)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("admin bypasses the cut-off", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-01", "2025-06-03", StatusConfirmed)

		got, err := f.svc.Cancel(ctx, r.ID, asAdmin)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("other users may not cancel", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-20", "2025-06-22", StatusConfirmed)

		_, err := f.svc.Cancel(ctx, r.ID, asStranger)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		_, err = f.svc.Cancel(ctx, r.ID, asOwner)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("repeating a cancellation changes nothing", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-20", "2025-06-22", StatusConfirmed)

		first, err := f.svc.Cancel(ctx, r.ID, asTenant)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, r.ID, asTenant)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.svc.UpdateStatus(ctx, r.ID, StatusCancelled, asAdmin)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		after, err := f.repo.GetByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, first, after)
		assert.Len(t, f.pub.names(), 1)
	})

	t.Run("owner cancels confirmed through status update without cut-off", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-02", "2025-06-04", StatusConfirmed)

		got, err := f.svc.UpdateStatus(ctx, r.ID, StatusCancelled, asOwner)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("tenant cancelling through status update honours the cut-off", func(t *testing.T) {
		f := newFixture()
		r := f.repo.seed(loftID, tenantUserID, "2025-06-02", "2025-06-04", StatusConfirmed)

		_, err := f.svc.UpdateStatus(ctx, r.ID, StatusCancelled, asTenant)
		assert.ErrorIs(t, err, ErrCancellationWindow)
	})
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

	tests := []struct {
		name  string
		actor user.Actor
		ok    bool
	}{
		{"tenant", asTenant, true},
		{"owner", asOwner, true},
		{"admin", asAdmin, true},
		{"stranger", asStranger, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GetByID(ctx, r.ID, tt.actor)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrPermissionDenied)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	r := f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)

	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, asOwner), ErrPermissionDenied)
	require.NoError(t, f.svc.Delete(ctx, r.ID, asAdmin))
	assert.ErrorIs(t, f.svc.Delete(ctx, r.ID, asAdmin), ErrNotFound)
	assert.Equal(t, []string{events.ReservationDeleted}, f.pub.names())
}

func TestStats(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.seed(loftID, tenantUserID, "2025-06-10", "2025-06-12", StatusPending)
	f.repo.seed(loftID, tenantUserID, "2025-06-14", "2025-06-15", StatusConfirmed)
	f.repo.seed(loftID, otherUserID, "2025-06-20", "2025-06-22", StatusConfirmed)
	f.repo.seed(loftID, otherUserID, "2025-06-20", "2025-06-22", StatusCancelled)

	st, err := f.svc.Stats(ctx, StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Count(StatusPending))
	assert.Equal(t, 2, st.Count(StatusConfirmed))
	assert.Equal(t, 0, st.Count(StatusCompleted))
	assert.Len(t, st.ByStatus, len(AllStatuses))

	st, err = f.svc.Stats(ctx, StatsFilter{TenantID: tenantUserID})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	done := f.repo.seed(loftID, tenantUserID, "2025-05-25", "2025-05-30", StatusConfirmed)
	ongoing := f.repo.seed(loftID, tenantUserID, "2025-05-30", "2025-06-01", StatusConfirmed)
	pending := f.repo.seed(loftID, otherUserID, "2025-05-20", "2025-05-22", StatusPending)

	n, err := f.svc.CompleteFinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[string]Status{
		done.ID:    StatusCompleted,
		ongoing.ID: StatusConfirmed,
		pending.ID: StatusPending,
	} {
		got, err := f.repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}

	n, err = f.svc.CompleteFinished(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
