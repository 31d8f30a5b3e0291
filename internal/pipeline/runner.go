package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/modsearch/internal/platform"
	"github.com/dgallion1/modsearch/internal/report"
	"github.com/dgallion1/modsearch/internal/search"
	"github.com/dgallion1/modsearch/internal/store"
)

// Remote is the part of the platform client a refresh needs.
type Remote interface {
	Fetcher
	Authenticate(ctx context.Context) error
	Authenticated() bool
	ListModules(ctx context.Context, applicationID string) ([]platform.Module, error)
}

// reportFormats are saved to the output directory after every search.
var reportFormats = []report.Format{report.FormatText, report.FormatJSON}

// Runner executes search jobs: an optional refresh of the local
// definitions, then a scan of the corpus.
type Runner struct {
	remote        Remote
	store         *store.Store
	searcher      *search.Searcher
	log           *slog.Logger
	applicationID string
	concurrency   int
}

func NewRunner(remote Remote, st *store.Store, searcher *search.Searcher, applicationID string, concurrency int, log *slog.Logger) *Runner {
	return &Runner{
		remote:        remote,
		store:         st,
		searcher:      searcher,
		log:           log,
		applicationID: applicationID,
		concurrency:   concurrency,
	}
}

// DefinitionDir is the corpus directory searched by the runner.
func (r *Runner) DefinitionDir() string {
	return r.store.DefinitionDir(r.applicationID)
}

// Run processes a job to a terminal status.
func (r *Runner) Run(ctx context.Context, job *Job) {
	log := r.log.With("job_id", job.ID, "target", job.Target)
	hadErrors := false

	if job.Refresh {
		summary, err := r.refresh(ctx, job, log)
		if err != nil {
			log.Error("refresh failed", "error", err)
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "refresh")
			return
		}
		for _, e := range summary.Errors {
			job.AddError(e)
		}
		if summary.Failed > 0 {
			hadErrors = true
			if summary.Downloaded == 0 {
				job.SetStatus(StatusFailed, "downloading")
				return
			}
		}
	}

	job.SetStatus(StatusLoading, "loading definitions")
	docs, err := r.store.LoadCorpus(r.DefinitionDir())
	if err != nil {
		log.Error("load corpus failed", "error", err)
		job.AddError(fmt.Sprintf("load: %s", err))
		job.SetStatus(StatusFailed, "loading")
		return
	}
	log.Info("loaded definitions", "documents", len(docs))

	job.SetStatus(StatusSearching, "searching")
	res := r.searcher.Scan(docs, job.SearchTarget())
	job.SetResult(res)
	log.Info("search complete", "hits", res.Hits, "locations", len(res.Locations))

	for _, f := range reportFormats {
		path, err := r.saveReport(job, res.Locations, f)
		if err != nil {
			log.Warn("save report failed", "format", f, "error", err)
			job.AddError(fmt.Sprintf("report %s: %s", f, err))
			continue
		}
		job.AddReport(path)
	}

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

func (r *Runner) refresh(ctx context.Context, job *Job, log *slog.Logger) (DownloadSummary, error) {
	if r.remote == nil {
		return DownloadSummary{}, fmt.Errorf("no platform client configured")
	}

	if !r.remote.Authenticated() {
		job.SetStatus(StatusAuthenticating, "authenticating")
		if err := r.remote.Authenticate(ctx); err != nil {
			return DownloadSummary{}, err
		}
	}

	job.SetStatus(StatusListing, "listing modules")
	modules, err := r.remote.ListModules(ctx, r.applicationID)
	if err != nil {
		return DownloadSummary{}, err
	}
	job.SetModulesTotal(len(modules))
	log.Info("listed modules", "modules", len(modules))
	if err := r.store.WriteModuleList(modules); err != nil {
		return DownloadSummary{}, err
	}

	job.SetStatus(StatusDownloading, "downloading definitions")
	d := NewDownloader(r.remote, r.store, log, r.concurrency)
	d.OnResult = func(_ platform.Module, err error) {
		job.RecordDownload(err != nil)
	}
	return d.DownloadAll(ctx, modules, r.DefinitionDir()), nil
}

func (r *Runner) saveReport(job *Job, locations []search.Location, f report.Format) (string, error) {
	var buf bytes.Buffer
	rr := report.Renderer{Target: job.Target}
	if err := rr.Render(&buf, locations, f); err != nil {
		return "", err
	}
	return r.store.WriteReport(ReportName(job, f), buf.Bytes())
}

// ReportName is the file name a job's report is saved under.
func ReportName(job *Job, f report.Format) string {
	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "search_" + slug(job.Target) + "_" + id + f.Extension()
}

func slug(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			sb.WriteRune(c)
		default:
			sb.WriteByte('_')
		}
		if sb.Len() >= 40 {
			break
		}
	}
	if sb.Len() == 0 {
		return "target"
	}
	return sb.String()
}
