package service

import (
	"context"
	"fmt"
	"sync"

	"ProdHub/internal/modules/ai/domain/rag"
	"ProdHub/internal/modules/ai/domain/repository"
	productRepo "ProdHub/internal/modules/product/domain/repository"
)

// fakeHosted 托管 AI 服务的内存替身
type fakeHosted struct {
	mu sync.Mutex

	assistants   int
	vectorStores int
	threads      int
	uploads      int
	runsCreated  int

	uploadedFiles []string
	vsFiles       map[string][]string
	deletedFiles  []string
	messages      map[string][]string

	// GetRun 依次消费这些状态，耗尽后重复最后一个
	runStatuses []string
	runErrText  string
	getRunCalls int

	answer string
}

func newFakeHosted() *fakeHosted {
	return &fakeHosted{
		vsFiles:     make(map[string][]string),
		messages:    make(map[string][]string),
		runStatuses: []string{repository.RunStatusCompleted},
		answer:      "hello from assistant",
	}
}

func (f *fakeHosted) CreateAssistant(_ context.Context, _ repository.AssistantSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assistants++
	return fmt.Sprintf("asst_%d", f.assistants), nil
}

func (f *fakeHosted) CreateVectorStore(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorStores++
	return fmt.Sprintf("vs_%d", f.vectorStores), nil
}

func (f *fakeHosted) AttachVectorStore(_ context.Context, _, _ string) error { return nil }

func (f *fakeHosted) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	id := fmt.Sprintf("file_%d", f.uploads)
	f.uploadedFiles = append(f.uploadedFiles, filename)
	return id, nil
}

func (f *fakeHosted) AddFileToVectorStore(_ context.Context, vectorStoreID, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vsFiles[vectorStoreID] = append(f.vsFiles[vectorStoreID], fileID)
	return nil
}

func (f *fakeHosted) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedFiles = append(f.deletedFiles, fileID)
	return nil
}

func (f *fakeHosted) CreateThread(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads++
	return fmt.Sprintf("thread_%d", f.threads), nil
}

func (f *fakeHosted) AddMessage(_ context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], content)
	return nil
}

func (f *fakeHosted) CreateRun(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runsCreated++
	return fmt.Sprintf("run_%d", f.runsCreated), nil
}

func (f *fakeHosted) GetRun(_ context.Context, _, _ string) (*repository.RunState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.getRunCalls
	if idx >= len(f.runStatuses) {
		idx = len(f.runStatuses) - 1
	}
	f.getRunCalls++
	return &repository.RunState{Status: f.runStatuses[idx], LastError: f.runErrText}, nil
}

func (f *fakeHosted) LatestAssistantMessage(_ context.Context, _ string) (string, error) {
	return f.answer, nil
}

var _ repository.HostedAIClient = (*fakeHosted)(nil)

type fakeAssistantRepo struct {
	rows map[string]*rag.AIAssistantRecord
}

func newFakeAssistantRepo() *fakeAssistantRepo {
	return &fakeAssistantRepo{rows: make(map[string]*rag.AIAssistantRecord)}
}

func (f *fakeAssistantRepo) FindByTenant(_ context.Context, tenantID string) (*rag.AIAssistantRecord, error) {
	return f.rows[tenantID], nil
}

func (f *fakeAssistantRepo) Save(_ context.Context, rec *rag.AIAssistantRecord) error {
	f.rows[rec.TenantId] = rec
	return nil
}

type fakeThreadRepo struct {
	rows map[string]*rag.AIThreadRecord
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{rows: make(map[string]*rag.AIThreadRecord)}
}

func (f *fakeThreadRepo) FindByUser(_ context.Context, tenantID, userID string) (*rag.AIThreadRecord, error) {
	return f.rows[tenantID+"|"+userID], nil
}

func (f *fakeThreadRepo) Save(_ context.Context, rec *rag.AIThreadRecord) error {
	f.rows[rec.TenantId+"|"+rec.UserId] = rec
	return nil
}

type fakeFileRepo struct {
	rows []*rag.AISyncedFile
}

func (f *fakeFileRepo) Add(_ context.Context, rec *rag.AISyncedFile) error {
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakeFileRepo) ListByTenant(_ context.Context, tenantID string) ([]*rag.AISyncedFile, error) {
	out := make([]*rag.AISyncedFile, 0)
	for _, rec := range f.rows {
		if rec.TenantId == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fakeExportReader 可在第 N 次列举后篡改数据，用来模拟同步期间的漂移
type fakeExportReader struct {
	records     []*productRepo.EntityRecord
	listCalls   int
	mutateAfter int // 0 表示不篡改
	mutateFn    func([]*productRepo.EntityRecord)
}

func (r *fakeExportReader) FetchRecord(_ context.Context, tenantID, entityType, entityID string) (*productRepo.EntityRecord, error) {
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.EntityType == entityType && rec.EntityID == entityID {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakeExportReader) ListTenantRecords(_ context.Context, tenantID string) ([]*productRepo.EntityRecord, error) {
	r.listCalls++
	if r.mutateAfter > 0 && r.listCalls == r.mutateAfter+1 && r.mutateFn != nil {
		r.mutateFn(r.records)
	}
	out := make([]*productRepo.EntityRecord, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeExportReader) ListTenants(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, rec := range r.records {
		if !seen[rec.TenantID] {
			seen[rec.TenantID] = true
			out = append(out, rec.TenantID)
		}
	}
	return out, nil
}

var _ productRepo.RecordReader = (*fakeExportReader)(nil)
