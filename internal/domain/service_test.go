package domain_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
	"example.com/planner/internal/persistence/memory"
)

var fixedNow = time.Date(2023, time.June, 15, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...domain.ServiceOption) (*domain.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	opts = append([]domain.ServiceOption{domain.WithClock(func() time.Time { return fixedNow })}, opts...)
	return domain.NewService(repo, opts...), repo
}

func details(title string, day int, start, end calendar.TimeOfDay) domain.ActivityDetails {
	return domain.ActivityDetails{
		Title:     title,
		Date:      civil.Date{Year: 2023, Month: 6, Day: day},
		StartTime: start,
		EndTime:   end,
	}
}

func TestCreateActivityIsIdempotent(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	input := domain.CreateActivityInput{
		TenantID:        "tenant",
		UserID:          "alex",
		IdempotencyKey:  "req-1",
		ActivityDetails: details("Morning Jog", 15, calendar.Clock(7, 0), calendar.Clock(8, 0)),
	}

	first, replay, err := svc.CreateActivity(ctx, input)
	require.NoError(t, err)
	require.False(t, replay)
	require.Equal(t, 1, first.Version)
	require.Equal(t, calendar.CategoryPersonal, first.Category)
	require.Equal(t, calendar.DefaultLeadTime, first.LeadTimeMin)

	second, replay, err := svc.CreateActivity(ctx, input)
	require.NoError(t, err)
	require.True(t, replay)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.Len())
}

func TestCreateActivityValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	lead := 45

	cases := map[string]domain.CreateActivityInput{
		"missing user": {
			TenantID:        "tenant",
			ActivityDetails: details("Jog", 15, calendar.Clock(7, 0), calendar.Clock(8, 0)),
		},
		"missing title": {
			TenantID: "tenant", UserID: "alex",
			ActivityDetails: details("  ", 15, calendar.Clock(7, 0), calendar.Clock(8, 0)),
		},
		"ends before start": {
			TenantID: "tenant", UserID: "alex",
			ActivityDetails: details("Jog", 15, calendar.Clock(9, 0), calendar.Clock(8, 0)),
		},
		"invalid date": {
			TenantID: "tenant", UserID: "alex",
			ActivityDetails: domain.ActivityDetails{Title: "Jog", Date: civil.Date{Year: 2023, Month: 2, Day: 30}},
		},
		"partner outside couple category": {
			TenantID: "tenant", UserID: "alex",
			ActivityDetails: domain.ActivityDetails{
				Title: "Dinner", Date: civil.Date{Year: 2023, Month: 6, Day: 15},
				Category: calendar.CategoryPersonal, WithPartner: true, LeadTimeMin: &lead,
			},
		},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.CreateActivity(ctx, input)
			require.ErrorIs(t, err, domain.ErrInvalidActivity)
		})
	}
}

func TestCreateActivityDerivesCategoryAndLeadTime(t *testing.T) {
	svc, _ := newService(t)
	lead := 45
	d := details("Dinner Date", 15, calendar.Clock(19, 0), calendar.Clock(21, 0))
	d.WithPartner = true
	d.LeadTimeMin = &lead

	agg, _, err := svc.CreateActivity(context.Background(), domain.CreateActivityInput{
		TenantID: "tenant", UserID: "alex", ActivityDetails: d,
	})
	require.NoError(t, err)
	require.Equal(t, calendar.CategoryCouple, agg.Category)
	require.Equal(t, calendar.DefaultLeadTime, agg.LeadTimeMin)
	require.Equal(t, "30 minutes before", agg.ReminderLabel())
}

func TestUpdateActivityBumpsVersion(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, _, err := svc.CreateActivity(ctx, domain.CreateActivityInput{
		TenantID: "tenant", UserID: "alex",
		ActivityDetails: details("Gym", 18, calendar.Clock(18, 0), calendar.Clock(19, 30)),
	})
	require.NoError(t, err)

	updated, err := svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		TenantID:        "tenant",
		ActivityID:      created.ID,
		ExpectedVersion: 1,
		ActivityDetails: details("Gym Session", 18, calendar.Clock(18, 30), calendar.Clock(20, 0)),
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, "Gym Session", updated.Title)

	_, err = svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		TenantID:        "tenant",
		ActivityID:      created.ID,
		ExpectedVersion: 1,
		ActivityDetails: details("Gym", 18, calendar.Clock(18, 0), calendar.Clock(19, 0)),
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	_, err = svc.UpdateActivity(ctx, domain.UpdateActivityInput{
		TenantID:        "other",
		ActivityID:      created.ID,
		ActivityDetails: details("Gym", 18, calendar.Clock(18, 0), calendar.Clock(19, 0)),
	})
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestReviewActivity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	past, _, err := svc.CreateActivity(ctx, domain.CreateActivityInput{
		TenantID: "tenant", UserID: "alex",
		ActivityDetails: details("Movie Night", 14, calendar.Clock(21, 30), calendar.Clock(23, 30)),
	})
	require.NoError(t, err)
	future, _, err := svc.CreateActivity(ctx, domain.CreateActivityInput{
		TenantID: "tenant", UserID: "alex",
		ActivityDetails: details("Picnic", 20, calendar.Clock(12, 0), calendar.Clock(14, 0)),
	})
	require.NoError(t, err)

	reviewed, err := svc.ReviewActivity(ctx, domain.ReviewActivityInput{
		TenantID: "tenant", ActivityID: past.ID, Rating: 4, Review: " great film ", Mood: "relaxed",
	})
	require.NoError(t, err)
	require.True(t, reviewed.Reviewed)
	require.Equal(t, 4, reviewed.Rating)
	require.Equal(t, "great film", reviewed.Review)
	require.Equal(t, domain.MoodRelaxed, reviewed.Mood)
	require.Equal(t, 2, reviewed.Version)

	_, err = svc.ReviewActivity(ctx, domain.ReviewActivityInput{TenantID: "tenant", ActivityID: future.ID, Rating: 5})
	require.ErrorIs(t, err, domain.ErrReviewNotAllowed)

	_, err = svc.ReviewActivity(ctx, domain.ReviewActivityInput{TenantID: "tenant", ActivityID: past.ID, Rating: 6})
	require.ErrorIs(t, err, domain.ErrInvalidActivity)

	_, err = svc.ReviewActivity(ctx, domain.ReviewActivityInput{TenantID: "tenant", ActivityID: past.ID, Rating: 3, Mood: "grumpy"})
	require.ErrorIs(t, err, domain.ErrInvalidActivity)
}

func TestDeleteActivity(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	created, _, err := svc.CreateActivity(ctx, domain.CreateActivityInput{
		TenantID: "tenant", UserID: "alex",
		ActivityDetails: details("Work Meeting", 16, calendar.Clock(10, 0), calendar.Clock(11, 0)),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteActivity(ctx, "tenant", created.ID))
	require.Zero(t, repo.Len())
	require.ErrorIs(t, svc.DeleteActivity(ctx, "tenant", created.ID), domain.ErrActivityNotFound)

	_, err = svc.GetActivity(ctx, "tenant", created.ID)
	require.ErrorIs(t, err, domain.ErrActivityNotFound)
}
