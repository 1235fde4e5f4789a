package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirper_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SignupSteps counts wizard submissions by stage and outcome.
	SignupSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_signup_steps_total",
		Help: "Signup wizard submissions by stage and result",
	}, []string{"stage", "result"})

	// SignupsCompleted counts accounts created by the wizard.
	SignupsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirper_signups_completed_total",
		Help: "Accounts created through the signup wizard",
	})

	// SigninAttempts counts sign-in attempts by result.
	SigninAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_signin_attempts_total",
		Help: "Sign-in attempts by result",
	}, []string{"result"})

	// PasswordResets counts reset requests and completions.
	PasswordResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_password_resets_total",
		Help: "Password reset events by stage",
	}, []string{"stage"})

	// TweetsPosted counts created tweets.
	TweetsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chirper_tweets_posted_total",
		Help: "Tweets created",
	})

	// LikeToggles counts like toggles by resulting method.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_like_toggles_total",
		Help: "Like toggles by method (create or delete)",
	}, []string{"method"})

	// FollowActions counts follow and unfollow requests by result.
	FollowActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirper_follow_actions_total",
		Help: "Follow and unfollow actions by result",
	}, []string{"action", "result"})
)

const queryStartKey = "chirper:query_start"

// RegisterGormMetrics records query latency for every gorm statement.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string) error
		after  func(string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, before) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, after("create")) }},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, before) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, after("query")) }},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, before) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, after("update")) }},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, before) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, after("delete")) }},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, before) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, after("raw")) }},
	}
	for _, s := range steps {
		if err := s.before("metrics:before_" + s.op); err != nil {
			return err
		}
		if err := s.after("metrics:after_" + s.op); err != nil {
			return err
		}
	}
	return nil
}
