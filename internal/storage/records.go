package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/sqlinline"
)

// SceneRecord is the persisted shape of one scene, keyed by project and
// scene index.
type SceneRecord struct {
	ProjectID       string  `json:"projectId"`
	SceneIndex      int     `json:"sceneIndex"`
	StartPanelPath  string  `json:"startPanelPath"`
	EndPanelPath    *string `json:"endPanelPath"`
	VideoPrompt     *string `json:"videoPrompt"`
	DurationSeconds int     `json:"duration"`
	Status          string  `json:"status"`
	ErrorMessage    *string `json:"errorMessage"`
	VideoPath       *string `json:"videoPath,omitempty"`
}

// RecordStore is the row-persistence contract consumed by the pipeline.
type RecordStore interface {
	UpsertScene(ctx context.Context, rec SceneRecord) error
	ScenesByProject(ctx context.Context, projectID string) ([]SceneRecord, error)
	PendingScenes(ctx context.Context, limit int) ([]SceneRecord, error)
	UpdateSceneStatus(ctx context.Context, projectID string, sceneIndex int, status string, errorMessage, videoPath *string) error
	DeleteScenes(ctx context.Context, projectID string) error
	UpsertStoryboard(ctx context.Context, episodeID string, payload any, parseStatus string) error
	Storyboard(ctx context.Context, episodeID string) (json.RawMessage, string, error)
}

// PGRecordStore implements RecordStore over the shared SQL runner.
type PGRecordStore struct {
	sql infra.SQLExecutor
}

func NewPGRecordStore(sql infra.SQLExecutor) *PGRecordStore {
	return &PGRecordStore{sql: sql}
}

func (s *PGRecordStore) UpsertScene(ctx context.Context, rec SceneRecord) error {
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertScene,
		rec.ProjectID, rec.SceneIndex, rec.StartPanelPath, rec.EndPanelPath,
		rec.VideoPrompt, rec.DurationSeconds, rec.Status, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("upsert scene %d: %w", rec.SceneIndex, err)
	}
	return nil
}

func (s *PGRecordStore) ScenesByProject(ctx context.Context, projectID string) ([]SceneRecord, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectScenesByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SceneRecord
	for rows.Next() {
		rec := SceneRecord{ProjectID: projectID}
		if err := rows.Scan(&rec.SceneIndex, &rec.StartPanelPath, &rec.EndPanelPath,
			&rec.VideoPrompt, &rec.DurationSeconds, &rec.Status, &rec.ErrorMessage, &rec.VideoPath); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGRecordStore) PendingScenes(ctx context.Context, limit int) ([]SceneRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.sql.Query(ctx, sqlinline.QSelectPendingScenes, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SceneRecord
	for rows.Next() {
		rec := SceneRecord{Status: "pending"}
		if err := rows.Scan(&rec.ProjectID, &rec.SceneIndex, &rec.StartPanelPath,
			&rec.EndPanelPath, &rec.VideoPrompt, &rec.DurationSeconds); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGRecordStore) UpdateSceneStatus(ctx context.Context, projectID string, sceneIndex int, status string, errorMessage, videoPath *string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QUpdateSceneStatus, projectID, sceneIndex, status, errorMessage, videoPath)
	if err != nil {
		return fmt.Errorf("update scene %d status: %w", sceneIndex, err)
	}
	return nil
}

func (s *PGRecordStore) DeleteScenes(ctx context.Context, projectID string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteScenesByProject, projectID)
	return err
}

func (s *PGRecordStore) UpsertStoryboard(ctx context.Context, episodeID string, payload any, parseStatus string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode storyboard: %w", err)
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QUpsertStoryboard, episodeID, raw, parseStatus); err != nil {
		return fmt.Errorf("upsert storyboard: %w", err)
	}
	return nil
}

func (s *PGRecordStore) Storyboard(ctx context.Context, episodeID string) (json.RawMessage, string, error) {
	var payload []byte
	var parseStatus string
	row := s.sql.QueryRow(ctx, sqlinline.QSelectStoryboard, episodeID)
	if err := row.Scan(&payload, &parseStatus); err != nil {
		if infra.IsNoRows(err) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return payload, parseStatus, nil
}

var _ RecordStore = (*PGRecordStore)(nil)
