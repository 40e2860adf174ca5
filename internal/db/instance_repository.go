package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nvetoshkin/questline/internal/quest"
)

// InstanceRepository persists per-player quest instance snapshots.
// Saves are full replace: the engine's in-memory state is the source of
// truth and the database only has to converge on it.
type InstanceRepository struct {
	db *pgxpool.Pool
}

// NewInstanceRepository creates a new InstanceRepository.
func NewInstanceRepository(db *pgxpool.Pool) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// SavePlayerState replaces all persisted instances for a player with the
// given snapshot.
func (r *InstanceRepository) SavePlayerState(ctx context.Context, snap quest.PlayerSnapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			slog.Error("rollback failed", "playerID", snap.PlayerID, "error", err)
		}
	}()

	if _, err := tx.Exec(ctx,
		`DELETE FROM quest_instances WHERE player_id = $1`,
		snap.PlayerID,
	); err != nil {
		return fmt.Errorf("deleting old instances for player %q: %w", snap.PlayerID, err)
	}

	if len(snap.Instances) > 0 {
		rows := make([][]any, 0, len(snap.Instances))
		var choiceRows [][]any
		for _, in := range snap.Instances {
			var completedAt *time.Time
			if !in.CompletedAt.IsZero() {
				t := in.CompletedAt
				completedAt = &t
			}
			rows = append(rows, []any{
				snap.PlayerID, in.QuestID, in.Status.String(),
				in.ObjectiveIndex, in.Progress, in.AcceptedAt, completedAt,
			})
			for choiceID, option := range in.Choices {
				choiceRows = append(choiceRows, []any{snap.PlayerID, in.QuestID, choiceID, option})
			}
		}

		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"quest_instances"},
			[]string{"player_id", "quest_id", "status", "objective_index", "progress", "accepted_at", "completed_at"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("inserting instances for player %q: %w", snap.PlayerID, err)
		}

		if len(choiceRows) > 0 {
			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"quest_choices"},
				[]string{"player_id", "quest_id", "choice_id", "option"},
				pgx.CopyFromRows(choiceRows),
			); err != nil {
				return fmt.Errorf("inserting choices for player %q: %w", snap.PlayerID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Debug("saved player quest state",
		"playerID", snap.PlayerID,
		"instances", len(snap.Instances))
	return nil
}

// LoadPlayerState loads all persisted instances for a player. A player
// with no rows yields an empty snapshot, not an error.
func (r *InstanceRepository) LoadPlayerState(ctx context.Context, playerID string) (quest.PlayerSnapshot, error) {
	snap := quest.PlayerSnapshot{PlayerID: playerID}

	rows, err := r.db.Query(ctx, `
		SELECT quest_id, status, objective_index, progress, accepted_at, completed_at
		FROM quest_instances
		WHERE player_id = $1
		ORDER BY quest_id
	`, playerID)
	if err != nil {
		return snap, fmt.Errorf("querying instances for player %q: %w", playerID, err)
	}
	defer rows.Close()

	byQuest := make(map[string]int, 8)
	for rows.Next() {
		var (
			is          quest.InstanceSnapshot
			status      string
			completedAt *time.Time
		)
		if err := rows.Scan(&is.QuestID, &status, &is.ObjectiveIndex, &is.Progress, &is.AcceptedAt, &completedAt); err != nil {
			return snap, fmt.Errorf("scanning instance row: %w", err)
		}
		is.Status, err = quest.StatusFromString(status)
		if err != nil {
			return snap, fmt.Errorf("instance for player %q quest %q: %w", playerID, is.QuestID, err)
		}
		if completedAt != nil {
			is.CompletedAt = *completedAt
		}
		byQuest[is.QuestID] = len(snap.Instances)
		snap.Instances = append(snap.Instances, is)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterating instance rows: %w", err)
	}

	choiceRows, err := r.db.Query(ctx, `
		SELECT quest_id, choice_id, option
		FROM quest_choices
		WHERE player_id = $1
	`, playerID)
	if err != nil {
		return snap, fmt.Errorf("querying choices for player %q: %w", playerID, err)
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var questID, choiceID, option string
		if err := choiceRows.Scan(&questID, &choiceID, &option); err != nil {
			return snap, fmt.Errorf("scanning choice row: %w", err)
		}
		i, ok := byQuest[questID]
		if !ok {
			continue
		}
		if snap.Instances[i].Choices == nil {
			snap.Instances[i].Choices = make(map[string]string, 2)
		}
		snap.Instances[i].Choices[choiceID] = option
	}
	if err := choiceRows.Err(); err != nil {
		return snap, fmt.Errorf("iterating choice rows: %w", err)
	}

	return snap, nil
}

// DeletePlayerState removes all persisted instances for a player.
func (r *InstanceRepository) DeletePlayerState(ctx context.Context, playerID string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM quest_instances WHERE player_id = $1`,
		playerID,
	); err != nil {
		return fmt.Errorf("deleting instances for player %q: %w", playerID, err)
	}
	return nil
}
