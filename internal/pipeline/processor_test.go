package pipeline

import (
	"context"
	"errors"
	"testing"

	"problem-search-go/internal/model"
	"problem-search-go/pkg/events"
	"problem-search-go/pkg/searchindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexCall struct {
	op       string
	domainID string
	docID    int64
	doc      model.ProblemIndexDoc
}

type recordingIndexer struct {
	calls     []indexCall
	removeErr error
}

func (r *recordingIndexer) Upsert(_ context.Context, domainID string, docID int64, doc model.ProblemIndexDoc) error {
	r.calls = append(r.calls, indexCall{op: "upsert", domainID: domainID, docID: docID, doc: doc})
	return nil
}

func (r *recordingIndexer) Remove(_ context.Context, domainID string, docID int64) error {
	r.calls = append(r.calls, indexCall{op: "remove", domainID: domainID, docID: docID})
	return r.removeErr
}

func TestSyncer_OnAddUsesGivenDocID(t *testing.T) {
	idx := &recordingIndexer{}
	s := NewSyncer(idx, nil)

	err := s.OnAdd(context.Background(), &model.Problem{DomainID: "d1", Title: strPtr("[x]")}, 12)

	require.NoError(t, err)
	require.Len(t, idx.calls, 1)
	call := idx.calls[0]
	assert.Equal(t, "upsert", call.op)
	assert.Equal(t, "d1", call.domainID)
	assert.Equal(t, int64(12), call.docID)
	assert.Equal(t, int64(12), call.doc.DocID)
	assert.Equal(t, " x ", *call.doc.Title)
}

func TestSyncer_OnEditUsesProblemKey(t *testing.T) {
	idx := &recordingIndexer{}
	s := NewSyncer(idx, nil)

	err := s.OnEdit(context.Background(), &model.Problem{DomainID: "d2", DocID: 5, PID: strPtr("CF100")})

	require.NoError(t, err)
	require.Len(t, idx.calls, 1)
	assert.Equal(t, "d2", idx.calls[0].domainID)
	assert.Equal(t, int64(5), idx.calls[0].docID)
	assert.Equal(t, "CF100 CF 100", *idx.calls[0].doc.PID)
}

func TestSyncer_OnDeleteMissingKeyPropagates(t *testing.T) {
	idx := &recordingIndexer{removeErr: searchindex.ErrNotFound}
	s := NewSyncer(idx, nil)

	err := s.OnDelete(context.Background(), "d1", 404)

	assert.ErrorIs(t, err, searchindex.ErrNotFound)
}

func TestSyncer_Process(t *testing.T) {
	tests := []struct {
		name    string
		event   events.ProblemEvent
		wantOp  string
		wantKey string
		wantErr error
	}{
		{
			name:    "add",
			event:   events.ProblemEvent{Type: events.TypeProblemAdd, DocID: 3, Problem: &model.Problem{DomainID: "d1"}},
			wantOp:  "upsert",
			wantKey: "d1/3",
		},
		{
			name:    "add falls back to problem docId",
			event:   events.ProblemEvent{Type: events.TypeProblemAdd, Problem: &model.Problem{DomainID: "d1", DocID: 8}},
			wantOp:  "upsert",
			wantKey: "d1/8",
		},
		{
			name:    "edit",
			event:   events.ProblemEvent{Type: events.TypeProblemEdit, Problem: &model.Problem{DomainID: "d1", DocID: 4}},
			wantOp:  "upsert",
			wantKey: "d1/4",
		},
		{
			name:    "del",
			event:   events.ProblemEvent{Type: events.TypeProblemDel, DomainID: "d1", DocID: 4},
			wantOp:  "remove",
			wantKey: "d1/4",
		},
		{
			name:    "edit without payload",
			event:   events.ProblemEvent{Type: events.TypeProblemEdit, DomainID: "d1", DocID: 4},
			wantErr: ErrMissingProblem,
		},
		{
			name:    "unknown type",
			event:   events.ProblemEvent{Type: "problem/rename"},
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &recordingIndexer{}
			err := NewSyncer(idx, nil).Process(context.Background(), tt.event)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, idx.calls)
				return
			}
			require.NoError(t, err)
			require.Len(t, idx.calls, 1)
			assert.Equal(t, tt.wantOp, idx.calls[0].op)
			assert.Equal(t, tt.wantKey, model.IndexKey(idx.calls[0].domainID, idx.calls[0].docID))
		})
	}
}

func TestSyncer_ProcessWrapsBackendError(t *testing.T) {
	boom := errors.New("connection refused")
	idx := &recordingIndexer{removeErr: boom}

	err := NewSyncer(idx, nil).Process(context.Background(),
		events.ProblemEvent{Type: events.TypeProblemDel, DomainID: "d1", DocID: 1})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "d1/1")
}
