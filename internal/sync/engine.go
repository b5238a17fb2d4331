// Package sync implements the per-user background importer: spec.md
// §4.D's OAuth-1.0a-signed, rate-limit-aware pagination loop that
// cross-writes a user's Discogs collection and wantlist into both stores
// and reports status through sync_history.
//
// Orchestration is grounded on the teacher's
// internal/controllers/sync/sync.controller.go (a thin controller wired
// from repositories + services + an event bus). The engine itself never
// sleeps: rate-limit backoff and page pacing happen inside
// internal/discogsclient, and progress events are published directly
// after each page.
package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"discogsography/internal/dbpool"
	"discogsography/internal/discogsclient"
	"discogsography/internal/events"
	"discogsography/internal/graphdriver"
	"discogsography/internal/models"
	"discogsography/internal/oauth1sign"
	"discogsography/pkg/logger"
)

// Engine orchestrates full syncs. It holds no per-run state; every call to
// RunFullSync is independent and keyed only by its arguments.
type Engine struct {
	pool     *dbpool.Pool
	graph    *graphdriver.Driver
	discogs  *discogsclient.Client
	eventBus *events.EventBus
	log      logger.Logger
}

func New(pool *dbpool.Pool, graph *graphdriver.Driver, discogs *discogsclient.Client, eventBus *events.EventBus) *Engine {
	return &Engine{pool: pool, graph: graph, discogs: discogs, eventBus: eventBus, log: logger.New("sync")}
}

// RunFullSync implements spec.md §4.D.3's orchestration: read credentials,
// fail fast if either is missing, run collection then wantlist, and
// unconditionally finalize the history row.
func (e *Engine) RunFullSync(ctx context.Context, userID uuid.UUID, syncID uuid.UUID) {
	log := e.log.Function("RunFullSync").With("userID", userID, "syncID", syncID)

	token, consumer, username, err := e.loadCredentials(ctx, userID)
	if err != nil {
		e.fail(ctx, syncID, userID, "missing Discogs credentials: "+err.Error(), log)
		return
	}

	collectionCount, err := e.syncCollection(ctx, userID, username, token, consumer)
	if err != nil {
		e.fail(ctx, syncID, userID, "collection sync failed: "+err.Error(), log)
		return
	}

	wantlistCount, err := e.syncWantlist(ctx, userID, username, token, consumer)
	if err != nil {
		e.fail(ctx, syncID, userID, "wantlist sync failed: "+err.Error(), log)
		return
	}

	e.complete(ctx, syncID, userID, collectionCount+wantlistCount, log)
}

// loadCredentials reads what a sync run needs to call the Discogs API: the
// user's linked token, the app's consumer credentials, and the Discogs
// username the token was issued for.
func (e *Engine) loadCredentials(ctx context.Context, userID uuid.UUID) (token, consumer oauth1sign.Credentials, username string, err error) {
	var oauthToken models.OAuthToken
	if err := e.pool.DB.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, "discogs").First(&oauthToken).Error; err != nil {
		return oauth1sign.Credentials{}, oauth1sign.Credentials{}, "", fmt.Errorf("no linked discogs account: %w", err)
	}

	var consumerKeyRow, consumerSecretRow models.AppConfig
	if err := e.pool.DB.WithContext(ctx).Where("key = ?", models.AppConfigDiscogsConsumerKey).First(&consumerKeyRow).Error; err != nil {
		return oauth1sign.Credentials{}, oauth1sign.Credentials{}, "", fmt.Errorf("app consumer key not configured: %w", err)
	}
	if err := e.pool.DB.WithContext(ctx).Where("key = ?", models.AppConfigDiscogsConsumerSecret).First(&consumerSecretRow).Error; err != nil {
		return oauth1sign.Credentials{}, oauth1sign.Credentials{}, "", fmt.Errorf("app consumer secret not configured: %w", err)
	}

	token = oauth1sign.Credentials{Token: oauthToken.AccessToken, Secret: oauthToken.AccessSecret}
	consumer = oauth1sign.Credentials{Token: consumerKeyRow.Value, Secret: consumerSecretRow.Value}
	return token, consumer, oauthToken.ProviderUsername, nil
}

// syncCollection drains every page of the user's collection, per page
// batch-upserting the relational rows and MERGEing the :COLLECTED edges.
func (e *Engine) syncCollection(ctx context.Context, userID uuid.UUID, username string, token, consumer oauth1sign.Credentials) (int, error) {
	total := 0
	for items, err := range e.discogs.Collection(ctx, username, consumer, token) {
		if err != nil {
			return total, err
		}
		if len(items) == 0 {
			continue
		}
		if err := e.upsertCollectionRows(ctx, userID, items); err != nil {
			return total, err
		}
		if err := e.mergeCollectionEdges(ctx, userID, items); err != nil {
			return total, err
		}
		total += len(items)
		e.publishProgress(userID, "collection", total)
	}
	return total, nil
}

// syncWantlist mirrors syncCollection for the wantlist endpoint.
func (e *Engine) syncWantlist(ctx context.Context, userID uuid.UUID, username string, token, consumer oauth1sign.Credentials) (int, error) {
	total := 0
	for items, err := range e.discogs.Wantlist(ctx, username, consumer, token) {
		if err != nil {
			return total, err
		}
		if len(items) == 0 {
			continue
		}
		if err := e.upsertWantlistRows(ctx, userID, items); err != nil {
			return total, err
		}
		if err := e.mergeWantlistEdges(ctx, userID, items); err != nil {
			return total, err
		}
		total += len(items)
		e.publishProgress(userID, "wantlist", total)
	}
	return total, nil
}

// upsertCollectionRows batch-upserts one page into user_collections inside
// a single transaction, per spec.md §4.D.2 step 6.
func (e *Engine) upsertCollectionRows(ctx context.Context, userID uuid.UUID, items []discogsclient.CollectionItem) error {
	rows := make([]models.UserCollectionItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.UserCollectionItem{
			UserID:     userID,
			ReleaseID:  fmt.Sprintf("%d", item.ReleaseID),
			InstanceID: fmt.Sprintf("%d", item.InstanceID),
			Artist:     item.Artist,
			Title:      item.Title,
			Year:       item.Year,
			Formats:    datatypes.JSON(item.Formats),
			Label:      item.Label,
			Rating:     item.Rating,
		})
	}

	return e.pool.WithRetry(ctx, func(ctx context.Context) error {
		return e.pool.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "release_id"}, {Name: "instance_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"artist", "title", "year", "formats", "label", "rating", "updated_at"}),
		}).Create(&rows).Error
	})
}

// upsertWantlistRows mirrors upsertCollectionRows for user_wantlists.
func (e *Engine) upsertWantlistRows(ctx context.Context, userID uuid.UUID, items []discogsclient.WantlistItem) error {
	rows := make([]models.UserWantlistItem, 0, len(items))
	for _, item := range items {
		rows = append(rows, models.UserWantlistItem{
			UserID:    userID,
			ReleaseID: fmt.Sprintf("%d", item.ReleaseID),
			Artist:    item.Artist,
			Title:     item.Title,
			Year:      item.Year,
			Format:    item.Format,
			Notes:     item.Notes,
		})
	}

	return e.pool.WithRetry(ctx, func(ctx context.Context) error {
		return e.pool.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "release_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"artist", "title", "year", "format", "notes", "updated_at"}),
		}).Create(&rows).Error
	})
}

// mergeCollectionEdges implements spec.md §4.D.2 step 7: MERGE a User{id}
// node, then UNWIND the batch and MERGE :COLLECTED edges onto existing
// Release{id} nodes. A release the catalog hasn't ingested yet simply
// produces no edge; a later full-sync converges once it has.
func (e *Engine) mergeCollectionEdges(ctx context.Context, userID uuid.UUID, items []discogsclient.CollectionItem) error {
	releaseIDs := make([]string, 0, len(items))
	for _, item := range items {
		releaseIDs = append(releaseIDs, fmt.Sprintf("%d", item.ReleaseID))
	}

	_, err := e.graph.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (u:User {id: $userId})
			WITH u
			UNWIND $releaseIds AS releaseId
			MATCH (r:Release {id: releaseId})
			MERGE (u)-[:COLLECTED]->(r)
		`, map[string]any{"userId": userID.String(), "releaseIds": releaseIDs})
		return nil, err
	})
	return err
}

// mergeWantlistEdges mirrors mergeCollectionEdges for :WANTS.
func (e *Engine) mergeWantlistEdges(ctx context.Context, userID uuid.UUID, items []discogsclient.WantlistItem) error {
	releaseIDs := make([]string, 0, len(items))
	for _, item := range items {
		releaseIDs = append(releaseIDs, fmt.Sprintf("%d", item.ReleaseID))
	}

	_, err := e.graph.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (u:User {id: $userId})
			WITH u
			UNWIND $releaseIds AS releaseId
			MATCH (r:Release {id: releaseId})
			MERGE (u)-[:WANTS]->(r)
		`, map[string]any{"userId": userID.String(), "releaseIds": releaseIDs})
		return nil, err
	})
	return err
}

func (e *Engine) publishProgress(userID uuid.UUID, stage string, count int) {
	if e.eventBus == nil {
		return
	}
	_ = e.eventBus.Publish(events.WebsocketChannel, events.Event{
		Type:   events.SyncProgress,
		UserID: &userID,
		Data:   map[string]any{"stage": stage, "count": count},
	})
}

func (e *Engine) complete(ctx context.Context, syncID, userID uuid.UUID, itemsSynced int, log logger.Logger) {
	err := e.pool.WithRetry(ctx, func(ctx context.Context) error {
		var history models.SyncHistory
		if err := e.pool.DB.WithContext(ctx).First(&history, "id = ?", syncID).Error; err != nil {
			return err
		}
		history.MarkCompleted(itemsSynced)
		return e.pool.DB.WithContext(ctx).Save(&history).Error
	})
	if err != nil {
		log.Er("failed to finalize sync history as completed", err)
	}

	if e.eventBus != nil {
		_ = e.eventBus.Publish(events.WebsocketChannel, events.Event{
			Type:   events.SyncComplete,
			UserID: &userID,
			Data:   map[string]any{"sync_id": syncID.String(), "items_synced": itemsSynced},
		})
	}
}

func (e *Engine) fail(ctx context.Context, syncID, userID uuid.UUID, reason string, log logger.Logger) {
	err := e.pool.WithRetry(ctx, func(ctx context.Context) error {
		var history models.SyncHistory
		if err := e.pool.DB.WithContext(ctx).First(&history, "id = ?", syncID).Error; err != nil {
			return err
		}
		history.MarkFailed(reason)
		return e.pool.DB.WithContext(ctx).Save(&history).Error
	})
	if err != nil {
		log.Er("failed to finalize sync history as failed", err)
	}

	if e.eventBus != nil {
		_ = e.eventBus.Publish(events.WebsocketChannel, events.Event{
			Type:   events.SyncError,
			UserID: &userID,
			Data:   map[string]any{"sync_id": syncID.String(), "error": reason},
		})
	}
}
