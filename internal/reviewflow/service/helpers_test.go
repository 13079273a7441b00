package service_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/service"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/store/memory"
	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

const (
	alice = "alice" // interviewer_a
	dan   = "dan"   // interviewer_a
	bob   = "bob"   // supervisor_b
	carol = "carol" // examiner_c
)

func silentLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type harness struct {
	engine   *service.Engine
	importer *service.Importer
	roles    *service.RoleRegistry
	sampling *service.SamplingPolicy
	oplog    *service.OpLog
	records  store.RecordStore
	audit    store.AuditTrail
	logs     *memory.LogStore
}

func newHarness(t *testing.T, rate float64) *harness {
	t.Helper()
	audit := memory.NewAuditTrail()
	return newHarnessWith(t, rate, memory.NewRecordStore(audit), audit)
}

func newHarnessWith(t *testing.T, rate float64, records store.RecordStore, audit store.AuditTrail) *harness {
	t.Helper()

	actors := memory.NewActorStore(map[string]types.Role{
		alice: types.RoleInterviewer,
		dan:   types.RoleInterviewer,
		bob:   types.RoleSupervisor,
		carol: types.RoleExaminer,
	})
	roles := service.NewRoleRegistry(actors, service.DefaultAuthorization())
	logs := memory.NewLogStore()
	oplog := service.NewOpLog(logs, silentLogger(), types.LevelDebug)
	sampling := service.NewSamplingPolicy(rate, "test-salt")
	clock := &stepClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}

	return &harness{
		engine: service.NewEngine(service.EngineDependencies{
			Records:  records,
			Audit:    audit,
			Roles:    roles,
			Sampling: sampling,
			OpLog:    oplog,
			Now:      clock.Now,
		}),
		importer: service.NewImporter(records, roles, oplog),
		roles:    roles,
		sampling: sampling,
		oplog:    oplog,
		records:  records,
		audit:    audit,
		logs:     logs,
	}
}

func (h *harness) importRecord(t *testing.T, survey, response string) types.Record {
	t.Helper()
	res, err := h.importer.Import(context.Background(), service.ImportRequest{
		SurveyID:   survey,
		ResponseID: response,
		Payload:    []byte(`{"age":41}`),
	})
	require.NoError(t, err)
	require.True(t, res.Created)
	return res.Record
}

func (h *harness) act(t *testing.T, recordID, actor string, action types.Action, notes string) (service.ActionResult, error) {
	t.Helper()
	return h.engine.ApplyAction(context.Background(), service.ActionRequest{
		RecordID: recordID,
		ActorID:  actor,
		Action:   action,
		Notes:    notes,
	})
}

func (h *harness) history(t *testing.T, recordID string) []types.AuditEntry {
	t.Helper()
	entries, err := h.engine.CollectHistory(context.Background(), recordID)
	require.NoError(t, err)
	return entries
}
