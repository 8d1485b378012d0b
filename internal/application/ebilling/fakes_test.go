package ebilling_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/application/ebilling"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/entity"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/domain/repository"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/internal/infrastructure/sunat"
	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/logger"
	psunat "github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Comprobantes ──

type memDocs struct {
	mu      sync.Mutex
	docs    map[string]*entity.ElectronicDocument
	members map[string][]string
	seq     map[string]int
}

func newMemDocs() *memDocs {
	return &memDocs{
		docs:    map[string]*entity.ElectronicDocument{},
		members: map[string][]string{},
		seq:     map[string]int{},
	}
}

func (m *memDocs) Run(ctx context.Context, fn func(repo repository.ElectronicDocumentRepository) error) error {
	return fn(m)
}

func (m *memDocs) Create(_ context.Context, doc *entity.ElectronicDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.SourceDocumentID != "" {
		for _, d := range m.docs {
			if d.SourceDocumentID == doc.SourceDocumentID {
				return domain.ErrDuplicate
			}
		}
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocs) GetByID(_ context.Context, id string) (*entity.ElectronicDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDocs) GetBySource(_ context.Context, sourceID string) (*entity.ElectronicDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.SourceDocumentID == sourceID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDocs) UpdateStatus(_ context.Context, id string, from, to entity.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Status != from {
		return domain.ErrConflict
	}
	d.Status = to
	return nil
}

func (m *memDocs) SetTicket(_ context.Context, id, ticket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Ticket = ticket
	return nil
}

func (m *memDocs) ListByStatus(_ context.Context, tenantID string, status entity.Status) ([]*entity.ElectronicDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ElectronicDocument
	for _, d := range m.docs {
		if d.TenantID == tenantID && d.Status == status {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceName < out[j].SourceName })
	return out, nil
}

func (m *memDocs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	delete(m.members, id)
	for sid, ids := range m.members {
		kept := ids[:0]
		for _, mid := range ids {
			if mid != id {
				kept = append(kept, mid)
			}
		}
		m.members[sid] = kept
	}
	return nil
}

func (m *memDocs) NextSummarySequence(_ context.Context, tenantID string, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tenantID + day.Format("20060102")
	m.seq[k]++
	return m.seq[k], nil
}

func (m *memDocs) AddSummaryMembers(_ context.Context, summaryID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if m.summaryOf(id) != "" {
			return domain.ErrDuplicate
		}
	}
	m.members[summaryID] = append(m.members[summaryID], ids...)
	return nil
}

func (m *memDocs) summaryOf(docID string) string {
	for sid, ids := range m.members {
		for _, id := range ids {
			if id == docID {
				return sid
			}
		}
	}
	return ""
}

func (m *memDocs) ListUnsummarized(_ context.Context, tenantID string) ([]*entity.ElectronicDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ElectronicDocument
	for _, d := range m.docs {
		if d.TenantID == tenantID && d.Status == entity.StatusPending && d.Channel == entity.ChannelSummary &&
			d.Type != entity.TypeSummary && m.summaryOf(d.ID) == "" {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceName < out[j].SourceName })
	return out, nil
}

func (m *memDocs) ListSummaryMembers(_ context.Context, summaryID string) ([]*entity.ElectronicDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ElectronicDocument
	for _, id := range m.members[summaryID] {
		if d, ok := m.docs[id]; ok {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memDocs) status(id string) entity.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id].Status
}

func (m *memDocs) put(doc *entity.ElectronicDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.ID] = &cp
}

// ── Documentos fuente y maestros ──

type memSources struct {
	srcs    map[string]*entity.SourceDocument
	origins map[string][]*entity.SourceDocument
	docs    *memDocs
}

func newMemSources(docs *memDocs, srcs ...*entity.SourceDocument) *memSources {
	m := &memSources{srcs: map[string]*entity.SourceDocument{}, origins: map[string][]*entity.SourceDocument{}, docs: docs}
	for _, s := range srcs {
		m.srcs[s.ID] = s
	}
	return m
}

func (m *memSources) GetByID(_ context.Context, id string) (*entity.SourceDocument, error) {
	s, ok := m.srcs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (m *memSources) ListWithoutElectronic(ctx context.Context, tenantID string, types []entity.SourceType) ([]*entity.SourceDocument, error) {
	var out []*entity.SourceDocument
	for _, s := range m.srcs {
		if s.TenantID != tenantID {
			continue
		}
		match := false
		for _, t := range types {
			match = match || s.Type == t
		}
		if !match {
			continue
		}
		if e, _ := m.docs.GetBySource(ctx, s.ID); e != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memSources) ListOrigins(_ context.Context, id string) ([]*entity.SourceDocument, error) {
	return m.origins[id], nil
}

type memContacts map[string]*entity.Contact

func (m memContacts) GetByID(_ context.Context, id string) (*entity.Contact, error) {
	c, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

type memLocations map[string]*entity.Location

func (m memLocations) GetByID(_ context.Context, id string) (*entity.Location, error) {
	l, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l, nil
}

type memTenants []*entity.Tenant

func (m memTenants) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	for _, t := range m {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memTenants) ListActive(context.Context) ([]*entity.Tenant, error) {
	var out []*entity.Tenant
	for _, t := range m {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

type memProps map[string]entity.Properties

func (m memProps) Load(_ context.Context, tenantID string) (entity.Properties, error) {
	return m[tenantID], nil
}

// kgUnits cada unidad pesa factor kilos.
type kgUnits struct{ factor decimal.Decimal }

func (u kgUnits) Convert(_ context.Context, productID string, q decimal.Decimal, _, _ string) (decimal.Decimal, bool, error) {
	if productID == "" {
		return decimal.Zero, false, nil
	}
	return q.Mul(u.factor), true, nil
}

// ── Archivos, bitácora y blobs ──

type memFiles struct {
	mu        sync.Mutex
	ubl       map[string]*entity.UBLFile
	resps     map[string][]*entity.ResponseFile
	createErr error
}

func newMemFiles() *memFiles {
	return &memFiles{ubl: map[string]*entity.UBLFile{}, resps: map[string][]*entity.ResponseFile{}}
}

func (m *memFiles) CreateUBL(_ context.Context, f *entity.UBLFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.ubl[f.DocumentID]; ok {
		return domain.ErrDuplicate
	}
	m.ubl[f.DocumentID] = f
	return nil
}

func (m *memFiles) GetUBL(_ context.Context, documentID string) (*entity.UBLFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ubl[documentID], nil
}

func (m *memFiles) CreateResponse(_ context.Context, f *entity.ResponseFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resps[f.DocumentID] = append(m.resps[f.DocumentID], f)
	return nil
}

func (m *memFiles) ListResponses(_ context.Context, documentID string) ([]*entity.ResponseFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resps[documentID], nil
}

type memLogs struct {
	mu      sync.Mutex
	entries []*entity.LogEntry
}

func (m *memLogs) Append(_ context.Context, e *entity.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogs) ListByDocument(_ context.Context, documentID string) ([]*entity.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.LogEntry
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLogs) codes(documentID string) []string {
	es, _ := m.ListByDocument(context.Background(), documentID)
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Code
	}
	return out
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
	n    int
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	h := fmt.Sprintf("mem://%d/%s", m.n, name)
	m.data[h] = append([]byte(nil), data...)
	return h, nil
}

func (m *memBlobs) Get(_ context.Context, handle string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[handle]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBlobs) Delete(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, handle)
	return nil
}

// ── Firma y transporte ──

// fakeSigner devuelve el payload sin cambios; nil si fail.
type fakeSigner struct{ fail bool }

func (s fakeSigner) Sign(_ context.Context, _ psunat.Keystore, payload []byte, _ string) (*psunat.SignResponse, error) {
	if s.fail {
		return nil, domain.ErrKeystore
	}
	return &psunat.SignResponse{Signed: payload, Hash: "aGFzaA=="}, nil
}

type fakeSOAP struct {
	mu        sync.Mutex
	cdr       []byte
	err       error
	ticket    string
	status    *sunat.StatusResponse
	sentBills []string
	summaries []string
}

func (f *fakeSOAP) SendBill(_ context.Context, _ string, _ sunat.Credentials, name string, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentBills = append(f.sentBills, name)
	return f.cdr, f.err
}

func (f *fakeSOAP) SendSummary(_ context.Context, _ string, _ sunat.Credentials, name string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, name)
	return f.ticket, f.err
}

func (f *fakeSOAP) GetStatus(context.Context, string, sunat.Credentials, string) (*sunat.StatusResponse, error) {
	return f.status, f.err
}

func (f *fakeSOAP) GetStatusCdr(context.Context, string, sunat.Credentials, string, string, string) (*sunat.StatusResponse, error) {
	return f.status, f.err
}

type fakeREST struct {
	ticket string
	status *sunat.RESTStatus
	err    error
}

func (f *fakeREST) Submit(context.Context, sunat.RESTTarget, string, string, []byte) (string, error) {
	return f.ticket, f.err
}

func (f *fakeREST) Status(context.Context, sunat.RESTTarget, string) (*sunat.RESTStatus, error) {
	return f.status, f.err
}

// cdrZip constancia con el código dado, empaquetada como la devuelve SUNAT.
func cdrZip(code, desc string) []byte {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2" xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2" xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ResponseCode>` + code + `</cbc:ResponseCode>
      <cbc:Description>` + desc + `</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
</ar:ApplicationResponse>`
	z, err := sunat.CompressXMLToZip([]byte(xml), "R-cdr.xml")
	if err != nil {
		panic(err)
	}
	return z
}

// ── Ensamblado del entorno ──

const tenantID = "t1"

func testTenant() *entity.Tenant {
	return &entity.Tenant{
		ID:           tenantID,
		Name:         "Demo",
		TaxID:        "20100070970",
		LegalName:    "DEMO S.A.C.",
		Address:      "Av. Lima 123",
		Ubigeo:       "150101",
		OwnContactID: "own",
		Active:       true,
	}
}

func baseProps() entity.Properties {
	return entity.Properties{
		entity.Key("Invoice", "Active"):       "true",
		entity.Key("Receipt", "Active"):       "true",
		entity.Key("CreditNote", "Active"):    "true",
		entity.Key("DeliveryNote", "Active"):  "true",
		entity.Key("Keystore", "Handle"):      "ks",
		entity.Key("SOAP", "User"):            "MODDATOS",
		entity.Key("SOAP", "Password"):        "moddatos",
		entity.Key("SOAP", "Endpoint"):        "http://soap.local",
		entity.Key("SOAP", "ConsultEndpoint"): "http://consult.local",
	}
}

type env struct {
	tenant     *entity.Tenant
	props      entity.Properties
	docs       *memDocs
	sources    *memSources
	contacts   memContacts
	locations  memLocations
	files      *memFiles
	logs       *memLogs
	blobs      *memBlobs
	soap       *fakeSOAP
	rest       *fakeREST
	signer     fakeSigner
	publisher  *fakePublisher
	listeners  ebilling.Listeners
	creator    *ebilling.Creator
	registry   *ebilling.Registry
	interp     *ebilling.Interpreter
	pipeline   *ebilling.Pipeline
	reconciler *ebilling.Reconciler
	service    *ebilling.Service
}

func newEnv(srcs ...*entity.SourceDocument) *env {
	e := &env{
		tenant:    testTenant(),
		props:     baseProps(),
		docs:      newMemDocs(),
		contacts:  memContacts{},
		locations: memLocations{},
		files:     newMemFiles(),
		logs:      &memLogs{},
		blobs:     newMemBlobs(),
		soap:      &fakeSOAP{cdr: cdrZip("0", "aceptada"), ticket: "1700000000001"},
		rest:      &fakeREST{ticket: "rest-ticket"},
		publisher: &fakePublisher{},
	}
	e.sources = newMemSources(e.docs, srcs...)
	e.blobs.data["ks"] = []byte("keystore")
	e.contacts["c-ruc"] = &entity.Contact{ID: "c-ruc", Name: "Cliente SAC", TaxNumber: "20131312955", Organization: true}
	e.contacts["c-dni"] = &entity.Contact{ID: "c-dni", Name: "Juan Pérez", IDNumber: "45678912"}
	return e
}

// fakePublisher registra lo publicado en gestión documental.
type fakePublisher struct {
	err  error
	sent []sunat.PublishRequest
}

func (f *fakePublisher) Publish(_ context.Context, r sunat.PublishRequest) error {
	f.sent = append(f.sent, r)
	return f.err
}

// build arma los servicios; se llama después de ajustar fakes y propiedades.
func (e *env) build() *env {
	log := logger.Nop()
	var err error
	e.creator, err = ebilling.NewCreator(e.sources, e.docs, e.docs, e.listeners, log)
	if err != nil {
		panic(err)
	}
	asm := ebilling.NewAssembler(e.sources, e.contacts, e.locations, kgUnits{factor: d("2.5")}, e.files, e.blobs, log)
	e.registry = ebilling.NewRegistry(asm)
	e.interp = ebilling.NewInterpreter(e.docs, e.logs, log)
	e.pipeline = ebilling.NewPipeline(ebilling.PipelineDeps{
		Registry:    e.registry,
		Sources:     e.sources,
		Docs:        e.docs,
		Tx:          e.docs,
		Files:       e.files,
		Blobs:       e.blobs,
		Builder:     sunat.NewXMLBuilder(),
		Signer:      e.signer,
		SOAP:        e.soap,
		REST:        e.rest,
		Publisher:   e.publisher,
		Interpreter: e.interp,
		Defaults:    ebilling.Defaults{Environment: "beta"},
	}, log)
	e.reconciler = ebilling.NewReconciler(memTenants{e.tenant}, memProps{tenantID: e.props},
		e.creator, e.pipeline, e.docs, nil, time.Minute, log)
	e.service = ebilling.NewService(ebilling.ServiceDeps{
		Tenants:     memTenants{e.tenant},
		Props:       memProps{tenantID: e.props},
		Sources:     e.sources,
		Docs:        e.docs,
		Files:       e.files,
		Logs:        e.logs,
		Blobs:       e.blobs,
		Creator:     e.creator,
		Pipeline:    e.pipeline,
		Interpreter: e.interp,
		Reconciler:  e.reconciler,
		Listeners:   e.listeners,
	}, log)
	return e
}

func invoiceSource(id, name string) *entity.SourceDocument {
	return &entity.SourceDocument{
		ID:         id,
		TenantID:   tenantID,
		Type:       entity.SourceInvoice,
		Name:       name,
		Date:       time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		Currency:   "PEN",
		NetTotal:   d("100"),
		CrossTotal: d("118"),
		ContactID:  "c-ruc",
		Taxes:      entity.TaxBreakdown{{Key: "IGV", Base: d("100"), Amount: d("18"), Factor: d("0.18")}},
		Positions: []entity.Position{{
			Index: 1, ProductID: "p1", ProductCode: "P1", Description: "Producto", Quantity: d("1"),
			NetUnitPrice: d("100"), CrossUnitPrice: d("118"), NetPrice: d("100"), CrossPrice: d("118"),
			Taxes: entity.TaxBreakdown{{Key: "IGV", Base: d("100"), Amount: d("18"), Factor: d("0.18")}},
		}},
	}
}
