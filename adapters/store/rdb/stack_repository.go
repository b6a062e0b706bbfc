package rdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/kompox/aksgraph/domain"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
)

// StackRepository persists snapshots in two tables. Secret values are
// encrypted with crypter before they are written.
type StackRepository struct {
	db      *gorm.DB
	crypter graph.Crypter
}

// NewStackRepository returns a repository over db. crypter may be nil for
// stacks that hold no secrets.
func NewStackRepository(db *gorm.DB, crypter graph.Crypter) *StackRepository {
	return &StackRepository{db: db, crypter: crypter}
}

// CanStoreSecrets reports whether a crypter is configured.
func (r *StackRepository) CanStoreSecrets() bool { return r.crypter != nil }

// Close closes the underlying database connection.
func (r *StackRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *StackRepository) encode(m graph.PropertyMap) (string, error) {
	if m == nil {
		return "", nil
	}
	enc, err := graph.EncodeSecrets(m, r.crypter)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(enc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *StackRepository) decode(s string) (graph.PropertyMap, error) {
	if s == "" {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	return graph.DecodeSecrets(raw, r.crypter)
}

func (r *StackRepository) resourceToRecord(stack string, seq int, st *model.ResourceState) (*ResourceRecord, error) {
	inputs, err := r.encode(st.Inputs)
	if err != nil {
		return nil, fmt.Errorf("%s inputs: %w", st.URN, err)
	}
	outputs, err := r.encode(st.Outputs)
	if err != nil {
		return nil, fmt.Errorf("%s outputs: %w", st.URN, err)
	}
	deps, err := json.Marshal(st.Dependencies)
	if err != nil {
		return nil, err
	}
	return &ResourceRecord{
		Stack:        stack,
		URN:          string(st.URN),
		Seq:          seq,
		Type:         st.Type,
		Kind:         int(st.Kind),
		ResourceID:   st.ID,
		Inputs:       inputs,
		Outputs:      outputs,
		Dependencies: string(deps),
		Provider:     string(st.Provider),
		Protect:      st.Protect,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}, nil
}

func (r *StackRepository) resourceToModel(rec *ResourceRecord) (*model.ResourceState, error) {
	inputs, err := r.decode(rec.Inputs)
	if err != nil {
		return nil, fmt.Errorf("%s inputs: %w", rec.URN, err)
	}
	outputs, err := r.decode(rec.Outputs)
	if err != nil {
		return nil, fmt.Errorf("%s outputs: %w", rec.URN, err)
	}
	var deps []graph.URN
	if rec.Dependencies != "" {
		if err := json.Unmarshal([]byte(rec.Dependencies), &deps); err != nil {
			return nil, fmt.Errorf("%s dependencies: %w", rec.URN, err)
		}
	}
	return &model.ResourceState{
		URN:          graph.URN(rec.URN),
		Type:         rec.Type,
		Kind:         graph.Kind(rec.Kind),
		ID:           rec.ResourceID,
		Inputs:       inputs,
		Outputs:      outputs,
		Dependencies: deps,
		Provider:     graph.URN(rec.Provider),
		Protect:      rec.Protect,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r *StackRepository) Get(ctx context.Context, stack string) (*model.Snapshot, error) {
	var rec StackRecord
	if err := r.db.WithContext(ctx).First(&rec, "name = ?", stack).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrStackNotFound
		}
		return nil, err
	}
	outputs, err := r.decode(rec.Outputs)
	if err != nil {
		return nil, fmt.Errorf("%w: outputs: %w", model.ErrStackInvalid, err)
	}
	var recs []ResourceRecord
	if err := r.db.WithContext(ctx).Where("stack = ?", stack).Order("seq ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	snap := &model.Snapshot{Stack: rec.Name, Outputs: outputs, UpdatedAt: rec.UpdatedAt}
	for i := range recs {
		st, err := r.resourceToModel(&recs[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrStackInvalid, err)
		}
		snap.Resources = append(snap.Resources, st)
	}
	return snap, nil
}

// Save replaces the stored snapshot of s.Stack in a single transaction.
func (r *StackRepository) Save(ctx context.Context, s *model.Snapshot) error {
	if s.Stack == "" {
		return fmt.Errorf("%w: empty stack name", model.ErrStackInvalid)
	}
	outputs, err := r.encode(s.Outputs)
	if err != nil {
		return fmt.Errorf("stack outputs: %w", err)
	}
	recs := make([]*ResourceRecord, 0, len(s.Resources))
	for i, st := range s.Resources {
		rec, err := r.resourceToRecord(s.Stack, i, st)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing StackRecord
		err := tx.First(&existing, "name = ?", s.Stack).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&StackRecord{Name: s.Stack, Outputs: outputs, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&StackRecord{}).Where("name = ?", s.Stack).Updates(map[string]any{"outputs": outputs, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("stack = ?", s.Stack).Delete(&ResourceRecord{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		return tx.Create(recs).Error
	})
}

func (r *StackRepository) List(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&StackRecord{}).Order("name ASC").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *StackRepository) Delete(ctx context.Context, stack string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&StackRecord{}, "name = ?", stack)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return model.ErrStackNotFound
		}
		return tx.Where("stack = ?", stack).Delete(&ResourceRecord{}).Error
	})
}

var (
	_ domain.SnapshotRepository = (*StackRepository)(nil)
	_ domain.SecretStore        = (*StackRepository)(nil)
	_ io.Closer                 = (*StackRepository)(nil)
)
