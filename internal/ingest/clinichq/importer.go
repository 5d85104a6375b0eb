package clinichq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	repos "github.com/feralops/tnr-backend/internal/data/repos/ingest"
	types "github.com/feralops/tnr-backend/internal/domain/ingest"
	"github.com/feralops/tnr-backend/internal/ingest/tabular"
	"github.com/feralops/tnr-backend/internal/observability"
	"github.com/feralops/tnr-backend/internal/platform/dbctx"
	"github.com/feralops/tnr-backend/internal/platform/logger"
	"github.com/feralops/tnr-backend/internal/resolver"
)

// Multipart field names of the three ClinicHQ exports.
const (
	FieldAnimalInfo      = "animal-info"
	FieldOwnerInfo       = "owner-info"
	FieldServiceLineInfo = "service-line-info"
)

// ErrBadInput marks malformed uploads (unreadable file, missing header
// row). Handlers map it to a 400; nothing is processed or recorded.
var ErrBadInput = errors.New("malformed input")

// catCreatedTolerance is how close to now a cat's creation timestamp
// must be for the resolver outcome to count as "created by this run".
const catCreatedTolerance = 5 * time.Second

// progressUpdates is the rough number of progress events per run.
const progressUpdates = 50

// FileInput is one uploaded export.
type FileInput struct {
	Name string
	Data []byte
}

// Input is a full ingest request: the three ClinicHQ exports plus the
// dry-run flag. Dry runs execute every read-only lookup but skip all
// writes and resolver mutations; counts land in the matched/skipped
// buckets so they line up with a live run that found nothing new.
type Input struct {
	AnimalInfo      FileInput
	OwnerInfo       FileInput
	ServiceLineInfo FileInput
	DryRun          bool
}

// Result is the terminal outcome of one run. Success is false when any
// aggregate errored; stats are complete either way.
type Result struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	RunID     uuid.UUID       `json:"runId"`
	DryRun    bool            `json:"dryRun"`
	ElapsedMS int64           `json:"elapsedMs"`
	Stats     ProcessingStats `json:"stats"`
}

// Archiver stores the uploaded files for later audit, keyed by run.
// Implementations return a location URI. Archival is best-effort: a
// failure is logged, never fatal to the run.
type Archiver interface {
	ArchiveRun(ctx context.Context, runID uuid.UUID, files map[string]FileInput) (string, error)
}

// RunNotifier fans run lifecycle events out to live subscribers. All
// methods must be non-blocking.
type RunNotifier interface {
	RunProgress(runID uuid.UUID, ev Event)
	RunComplete(runID uuid.UUID, ev Event)
	RunFailed(runID uuid.UUID, ev Event)
}

// Importer owns one ingest run end to end: parse, merge, resolve,
// write, bookkeep.
type Importer interface {
	// Run processes the uploads and blocks until done. The returned
	// error is reserved for malformed input and bookkeeping failures;
	// per-aggregate errors are folded into the Result instead.
	Run(ctx context.Context, in Input) (*Result, error)
	// RunStream processes the uploads on a producer goroutine and
	// emits progress events on the returned channel, closing it after
	// the terminal complete or error event. Cancel ctx to abort.
	RunStream(ctx context.Context, in Input) <-chan Event
}

type importer struct {
	res      resolver.Service
	raw      repos.RawRecordRepo
	appts    repos.AppointmentRepo
	runs     repos.IngestRunRepo
	archive  Archiver
	notifier RunNotifier
	log      *logger.Logger
}

// NewImporter wires an importer. archive and notifier may be nil.
func NewImporter(
	res resolver.Service,
	raw repos.RawRecordRepo,
	appts repos.AppointmentRepo,
	runs repos.IngestRunRepo,
	archive Archiver,
	notifier RunNotifier,
	baseLog *logger.Logger,
) Importer {
	return &importer{
		res:      res,
		raw:      raw,
		appts:    appts,
		runs:     runs,
		archive:  archive,
		notifier: notifier,
		log:      baseLog.With("service", "ClinicHQImporter"),
	}
}

func (imp *importer) Run(ctx context.Context, in Input) (*Result, error) {
	return imp.run(ctx, in, nil)
}

func (imp *importer) RunStream(ctx context.Context, in Input) <-chan Event {
	out := make(chan Event, 8)
	go func() {
		defer close(out)
		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		res, err := imp.run(ctx, in, emit)
		if err != nil {
			emit(Event{Type: EventError, Error: err.Error()})
			return
		}
		emit(Event{Type: EventComplete, Result: res})
	}()
	return out
}

// emitFunc pushes one event to the streaming consumer. A false return
// means the consumer is gone and the run should abort best-effort.
type emitFunc func(ev Event) bool

func (imp *importer) run(ctx context.Context, in Input, emit emitFunc) (*Result, error) {
	started := time.Now()
	st := &ProcessingStats{}

	animal, owner, service, err := imp.parseInputs(ctx, in)
	if err != nil {
		return nil, err
	}
	st.AnimalRows = len(animal.Rows)
	st.OwnerRows = len(owner.Rows)
	st.ServiceLineRows = len(service.Rows)

	merged := mergeVisits(animal.Rows, owner.Rows, service.Rows)
	st.UniqueVisits = merged.UniqueVisits
	st.TotalServiceItems = merged.ServiceItemRows

	run, err := imp.runs.Start(dbctx.New(ctx), types.PipelineClinicHQVisits, in.DryRun)
	if err != nil {
		return nil, fmt.Errorf("start ingest run: %w", err)
	}
	imp.log.Info("ingest run started",
		"run_id", run.ID,
		"dry_run", in.DryRun,
		"animal_rows", st.AnimalRows,
		"owner_rows", st.OwnerRows,
		"service_rows", st.ServiceLineRows,
		"cats", len(merged.Cats),
		"visits", st.UniqueVisits,
	)
	if len(merged.Drops) > 0 {
		observability.ReportDataQualityIssues(ctx, imp.log, "visit_merge", merged.Drops, map[string]any{
			"run_id":   run.ID.String(),
			"pipeline": types.PipelineClinicHQVisits,
		})
	}

	archiveURI := ""
	if imp.archive != nil && !in.DryRun {
		uri, err := imp.archive.ArchiveRun(ctx, run.ID, map[string]FileInput{
			FieldAnimalInfo:      in.AnimalInfo,
			FieldOwnerInfo:       in.OwnerInfo,
			FieldServiceLineInfo: in.ServiceLineInfo,
		})
		if err != nil {
			imp.log.Warn("archive upload failed", "run_id", run.ID, "error", err)
		} else {
			archiveURI = uri
		}
	}

	total := len(merged.Cats)
	step := total / progressUpdates
	if step < 1 {
		step = 1
	}

	canceled := false
	for i, cat := range merged.Cats {
		if emit != nil && ctx.Err() != nil {
			canceled = true
			break
		}
		imp.processCat(ctx, cat, st, in.DryRun)
		if (i+1)%step == 0 || i+1 == total {
			snap := st.Snapshot()
			ev := Event{Type: EventProgress, Index: i + 1, Total: total, Stats: &snap}
			if imp.notifier != nil {
				imp.notifier.RunProgress(run.ID, ev)
			}
			if emit != nil && !emit(ev) {
				canceled = true
				break
			}
		}
	}

	details := runDetails(in, animal, owner, service, merged.Drops)

	if canceled {
		imp.finishRun(run.ID, repos.FinishParams{
			Status:       types.RunStatusError,
			RowCounts:    marshalStats(st),
			Details:      details,
			ErrorMessage: "run canceled before completion",
			ArchiveURI:   archiveURI,
		})
		if imp.notifier != nil {
			imp.notifier.RunFailed(run.ID, Event{Type: EventError, Error: "run canceled before completion"})
		}
		observability.Current().ObserveIngestRun(types.PipelineClinicHQVisits, types.RunStatusError, time.Since(started))
		return nil, ctx.Err()
	}

	status := types.RunStatusOK
	if st.Errors > 0 {
		status = types.RunStatusPartial
	}
	imp.finishRun(run.ID, repos.FinishParams{
		Status:       status,
		RowCounts:    marshalStats(st),
		Details:      details,
		ErrorMessage: st.LastError,
		ArchiveURI:   archiveURI,
	})

	res := &Result{
		Success:   st.Errors == 0,
		Message:   runMessage(st, total),
		RunID:     run.ID,
		DryRun:    in.DryRun,
		ElapsedMS: time.Since(started).Milliseconds(),
		Stats:     st.Snapshot(),
	}
	imp.log.Info("ingest run finished",
		"run_id", run.ID,
		"status", status,
		"errors", st.Errors,
		"elapsed_ms", res.ElapsedMS,
	)
	observability.Current().ObserveIngestRun(types.PipelineClinicHQVisits, status, time.Since(started))
	observability.Current().AddIngestTotals(observability.IngestTotals{
		Visits:         st.UniqueVisits,
		RawInserted:    st.RawInserted,
		RawSkipped:     st.RawSkipped,
		PersonsCreated: st.PersonsCreated,
		PersonsMatched: st.PersonsMatched,
		PseudoProfiles: st.PseudoProfiles,
		CatsCreated:    st.CatsCreated,
		CatsMatched:    st.CatsMatched,
		PlacesCreated:  st.PlacesCreated,
		PlacesMatched:  st.PlacesMatched,
		Errors:         st.Errors,
	})
	if imp.notifier != nil {
		imp.notifier.RunComplete(run.ID, Event{Type: EventComplete, Result: res})
	}
	return res, nil
}

// parseInputs normalizes the three uploads in parallel. Any parse
// failure fails the whole request as bad input.
func (imp *importer) parseInputs(ctx context.Context, in Input) (animal, owner, service *tabular.Result, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := tabular.Parse(in.AnimalInfo.Name, in.AnimalInfo.Data)
		if err != nil {
			return fmt.Errorf("%s: %v", FieldAnimalInfo, err)
		}
		animal = r
		return nil
	})
	g.Go(func() error {
		r, err := tabular.Parse(in.OwnerInfo.Name, in.OwnerInfo.Data)
		if err != nil {
			return fmt.Errorf("%s: %v", FieldOwnerInfo, err)
		}
		owner = r
		return nil
	})
	g.Go(func() error {
		r, err := tabular.Parse(in.ServiceLineInfo.Name, in.ServiceLineInfo.Data)
		if err != nil {
			return fmt.Errorf("%s: %v", FieldServiceLineInfo, err)
		}
		service = r
		return nil
	})
	if werr := g.Wait(); werr != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrBadInput, werr)
	}

	for field, res := range map[string]*tabular.Result{
		FieldAnimalInfo:      animal,
		FieldOwnerInfo:       owner,
		FieldServiceLineInfo: service,
	} {
		for _, w := range res.Warnings {
			imp.log.Warn("parse warning", "file", field, "warning", w)
		}
	}
	return animal, owner, service, nil
}

// processCat isolates one aggregate: any error or panic increments the
// error count and the run moves on to the next cat.
func (imp *importer) processCat(ctx context.Context, cat *CatAggregate, st *ProcessingStats, dryRun bool) {
	defer func() {
		if rec := recover(); rec != nil {
			st.Errors++
			st.LastError = fmt.Sprintf("cat %s: panic: %v", cat.Microchip, rec)
			imp.log.Error("cat aggregate panicked", "microchip", cat.Microchip, "panic", rec)
		}
	}()
	if err := imp.importCat(ctx, cat, st, dryRun); err != nil {
		st.Errors++
		st.LastError = fmt.Sprintf("cat %s: %v", cat.Microchip, err)
		imp.log.Error("cat aggregate failed", "microchip", cat.Microchip, "error", err)
	}
}

func (imp *importer) importCat(ctx context.Context, cat *CatAggregate, st *ProcessingStats, dryRun bool) error {
	dbc := dbctx.New(ctx)

	// Layer 1: content-addressed raw rows. The representative animal
	// row lands once per cat; owner rows are deduped by hash within
	// the aggregate; service rows are keyed per visit.
	if cat.AnimalRow != nil {
		if err := imp.insertRaw(dbc, types.RecordTypeAnimalInfo, cat.Microchip, cat.AnimalRow, st, dryRun); err != nil {
			return err
		}
	}
	seenOwners := make(map[string]bool)
	for _, v := range cat.Visits {
		if v.OwnerRow == nil {
			continue
		}
		h := v.OwnerRow.Hash()
		if seenOwners[h] {
			continue
		}
		seenOwners[h] = true
		if err := imp.insertRaw(dbc, types.RecordTypeOwnerInfo, cat.Microchip, v.OwnerRow, st, dryRun); err != nil {
			return err
		}
	}
	for _, v := range cat.Visits {
		for _, row := range v.ServiceRows {
			if err := imp.insertRaw(dbc, types.RecordTypeServiceLine, v.Key.String(), row, st, dryRun); err != nil {
				return err
			}
		}
	}

	// Layer 2: one appointment per visit. Owner classification and
	// resolution run at most once per fingerprint within this
	// aggregate; the cache dies with the aggregate.
	cache := make(map[string]*ownerOutcome)
	for _, v := range cat.Visits {
		if err := imp.importVisit(ctx, dbc, v, cache, st, dryRun); err != nil {
			return err
		}
	}

	// Layer 3: canonical cat identity.
	return imp.resolveCat(ctx, cat, st, dryRun)
}

func (imp *importer) insertRaw(dbc dbctx.Context, recordType, sourceID string, row tabular.Row, st *ProcessingStats, dryRun bool) error {
	if dryRun {
		st.RawSkipped++
		return nil
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal %s row: %w", recordType, err)
	}
	inserted, err := imp.raw.Insert(dbc, &types.RawRecord{
		RecordType:     recordType,
		SourceRecordID: sourceID,
		RowHash:        row.Hash(),
		Payload:        datatypes.JSON(payload),
	})
	if err != nil {
		return fmt.Errorf("insert %s raw row: %w", recordType, err)
	}
	if inserted {
		st.RawInserted++
	} else {
		st.RawSkipped++
	}
	return nil
}

// ownerOutcome is one fingerprint's cached resolution: the status and
// notes every appointment of that owner receives, plus the confirmed
// person id when there is one.
type ownerOutcome struct {
	personID *uuid.UUID
	status   string
	notes    string
}

func (imp *importer) importVisit(ctx context.Context, dbc dbctx.Context, v *Visit, cache map[string]*ownerOutcome, st *ProcessingStats, dryRun bool) error {
	var fp OwnerFingerprint
	if v.OwnerRow != nil {
		fp = extractOwner(v.OwnerRow)
	}

	out, ok := cache[fp.Key()]
	if !ok {
		var err error
		out, err = imp.resolveOwner(ctx, v, fp, st, dryRun)
		if err != nil {
			return err
		}
		cache[fp.Key()] = out
	}

	if dryRun {
		return nil
	}

	appt, err := buildAppointment(v, fp)
	if err != nil {
		return err
	}
	id, _, err := imp.appts.Upsert(dbc, appt)
	if err != nil {
		return fmt.Errorf("upsert appointment %s: %w", v.Key.String(), err)
	}
	if out.status != "" {
		if err := imp.appts.SetResolution(dbc, id, out.status, out.personID, out.notes); err != nil {
			return fmt.Errorf("set resolution %s: %w", v.Key.String(), err)
		}
	}
	return nil
}

// resolveOwner classifies one fingerprint and, when it should be a
// person, resolves it against the platform. Classification is
// read-only and runs on dry runs too; the Resolve*/Link* calls mutate
// match counters and are skipped, with their counts landing in the
// matched buckets.
func (imp *importer) resolveOwner(ctx context.Context, v *Visit, fp OwnerFingerprint, st *ProcessingStats, dryRun bool) (*ownerOutcome, error) {
	cls, err := classifyOwner(ctx, imp.res, fp)
	if err != nil {
		return nil, err
	}

	out := &ownerOutcome{}
	if !cls.ShouldBePerson {
		st.PseudoProfiles++
		out.status = types.ResolutionPseudoProfile
		out.notes = fmt.Sprintf("%s: %s", cls.Type, cls.Reason)
		return out, nil
	}

	addr := ""
	if v.OwnerRow != nil {
		addr = extractOwnerAddress(v.OwnerRow)
	}

	if dryRun {
		st.PersonsMatched++
		if addr != "" {
			st.PlacesMatched++
		}
		return out, nil
	}

	pr, err := imp.res.ResolvePerson(ctx, resolver.PersonInput{
		FirstName:    fp.First,
		LastName:     fp.Last,
		Email:        fp.Email,
		Phone:        fp.Phone,
		Address:      addr,
		SourceSystem: types.SourceSystemClinicHQ,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve person: %w", err)
	}
	out.notes = "resolution " + string(pr.Decision)
	deferred := pr.Decision == resolver.DecisionReviewPending || pr.Decision == resolver.DecisionRejected
	if pr.PersonID != nil && !deferred {
		if pr.IsNew {
			st.PersonsCreated++
		} else {
			st.PersonsMatched++
		}
		out.personID = pr.PersonID
		out.status = types.ResolutionAutoLinked
	} else {
		// No confirmed person. The appointment stays pending, but the
		// decision label is kept in the notes for human review.
		out.status = types.ResolutionPending
	}

	if addr != "" {
		pl, err := imp.res.ResolvePlace(ctx, resolver.PlaceInput{
			Address:      addr,
			SourceSystem: types.SourceSystemClinicHQ,
		})
		if err != nil {
			return nil, fmt.Errorf("resolve place: %w", err)
		}
		if pl.PlaceID != nil {
			if pl.IsNew {
				st.PlacesCreated++
			} else {
				st.PlacesMatched++
			}
			if out.personID != nil {
				err := imp.res.LinkPersonPlace(ctx, resolver.LinkInput{
					PersonID:     *out.personID,
					PlaceID:      *pl.PlaceID,
					Role:         "resident",
					EvidenceType: "appointment",
					SourceSystem: types.SourceSystemClinicHQ,
					Confidence:   "medium",
				})
				if err != nil {
					return nil, fmt.Errorf("link person place: %w", err)
				}
			}
		}
	}
	return out, nil
}

func (imp *importer) resolveCat(ctx context.Context, cat *CatAggregate, st *ProcessingStats, dryRun bool) error {
	if dryRun {
		st.CatsMatched++
		return nil
	}
	attrs := extractAnimalAttributes(cat.AnimalRow)
	cr, err := imp.res.ResolveCatByMicrochip(ctx, resolver.CatInput{
		Microchip:     cat.Microchip,
		Name:          attrs.Name,
		Sex:           attrs.Sex,
		Breed:         attrs.Breed,
		AlteredStatus: attrs.AlteredStatus,
		Color:         attrs.Color,
		SourceSystem:  types.SourceSystemClinicHQ,
	})
	if err != nil {
		return fmt.Errorf("resolve cat: %w", err)
	}
	if cr.CatID == nil {
		return nil
	}
	if time.Since(cr.CreatedAt) <= catCreatedTolerance {
		st.CatsCreated++
	} else {
		st.CatsMatched++
	}
	return nil
}

func buildAppointment(v *Visit, fp OwnerFingerprint) (*types.Appointment, error) {
	payload := map[string]any{
		"animal":   v.AnimalRow,
		"owner":    v.OwnerRow,
		"services": v.ServiceRows,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal visit payload: %w", err)
	}
	sum := sha256.Sum256(raw)

	addr := ""
	if v.OwnerRow != nil {
		addr = extractOwnerAddress(v.OwnerRow)
	}
	name, number, ownership := "", "", ""
	for _, r := range []tabular.Row{v.AnimalRow, v.OwnerRow} {
		if r == nil {
			continue
		}
		if name == "" {
			name = extractAnimalName(r)
		}
		if number == "" {
			number = extractApptNumber(r)
		}
		if ownership == "" {
			ownership = extractOwnership(r)
		}
	}

	return &types.Appointment{
		SourceSystem:   types.SourceSystemClinicHQ,
		SourcePK:       v.Key.String(),
		VisitDate:      v.Key.VisitDate,
		DateConfident:  v.Key.DateConfident,
		Microchip:      v.Key.Microchip,
		ApptNumber:     number,
		Ownership:      ownership,
		AnimalName:     name,
		OwnerFirstName: fp.First,
		OwnerLastName:  fp.Last,
		OwnerEmail:     fp.Email,
		OwnerPhone:     fp.Phone,
		OwnerAddress:   addr,
		ServiceSummary: strings.Join(v.ServiceItems, "; "),
		RowHash:        hex.EncodeToString(sum[:])[:32],
		Payload:        datatypes.JSON(raw),
	}, nil
}

// finishRun closes the bookkeeping row on a detached context so that a
// canceled request cannot strand the run in "running".
func (imp *importer) finishRun(id uuid.UUID, params repos.FinishParams) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := imp.runs.Finish(dbctx.New(ctx), id, params); err != nil {
		imp.log.Error("finish ingest run", "run_id", id, "error", err)
	}
}

func marshalStats(st *ProcessingStats) datatypes.JSON {
	raw, err := json.Marshal(st.Snapshot())
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func runDetails(in Input, animal, owner, service *tabular.Result, drops map[string]int) datatypes.JSON {
	details := map[string]any{
		"files": map[string]string{
			FieldAnimalInfo:      in.AnimalInfo.Name,
			FieldOwnerInfo:       in.OwnerInfo.Name,
			FieldServiceLineInfo: in.ServiceLineInfo.Name,
		},
	}
	warnings := map[string]int{}
	for field, res := range map[string]*tabular.Result{
		FieldAnimalInfo:      animal,
		FieldOwnerInfo:       owner,
		FieldServiceLineInfo: service,
	} {
		if n := len(res.Warnings); n > 0 {
			warnings[field] = n
		}
	}
	if len(warnings) > 0 {
		details["parseWarnings"] = warnings
	}
	if len(drops) > 0 {
		details["rowDrops"] = drops
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func runMessage(st *ProcessingStats, cats int) string {
	if st.Errors > 0 {
		return fmt.Sprintf("processed %d cats with %d errors", cats, st.Errors)
	}
	return fmt.Sprintf("processed %d cats across %d visits", cats, st.UniqueVisits)
}
