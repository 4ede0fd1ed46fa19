// Package game holds session-layer services that sit beside the actors.
// Right now that is the optional Redis stats recorder; battle resolution
// itself lives in the clients, never here.
package game

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/darkgotchi/mpnet/server/internal/utils"
)

// StatsRecorder keeps coarse operational counters (battles started,
// finished, forfeited; parties opened and closed) in Redis. It is strictly
// best-effort: a nil recorder or an unreachable Redis only costs log
// lines, never gameplay.
type StatsRecorder struct {
	client *redis.Client
	ctx    context.Context
}

// NewStatsRecorder connects to Redis at addr. An initial ping failure is
// logged but not fatal; counters start working once Redis is reachable.
func NewStatsRecorder(addr, password string, db int) *StatsRecorder {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	s := &StatsRecorder{client: client, ctx: context.Background()}
	if err := client.Ping(s.ctx).Err(); err != nil {
		utils.LogWarnf("[stats] redis ping %s failed: %v (counters degraded)", addr, err)
	} else {
		utils.LogInfof("[stats] recording counters to redis at %s", addr)
	}
	return s
}

func (s *StatsRecorder) incr(key string) {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.Incr(s.ctx, key).Err(); err != nil {
		utils.LogDebugf("[stats] incr %s: %v", key, err)
	}
}

// BattleStarted counts a new battle room.
func (s *StatsRecorder) BattleStarted() {
	s.incr("mpnet:battles_started")
}

// BattleEnded counts a closed battle by its end reason.
func (s *StatsRecorder) BattleEnded(reason string) {
	s.incr(fmt.Sprintf("mpnet:battles_ended:%s", reason))
}

// PartyCreated counts a new adventure party.
func (s *StatsRecorder) PartyCreated() {
	s.incr("mpnet:parties_created")
}

// PartyClosed counts a destroyed adventure party.
func (s *StatsRecorder) PartyClosed() {
	s.incr("mpnet:parties_closed")
}

// Close releases the Redis connection.
func (s *StatsRecorder) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
