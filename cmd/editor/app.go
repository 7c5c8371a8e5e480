package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/client"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/editor"
	"resumeBuilder/internal/export"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/preview"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/session"
	"resumeBuilder/internal/versions"
)

const pushJob = "resume_editor"

type app struct {
	cfg      *config.ClientConfig
	out      io.Writer
	logger   *slog.Logger
	creds    *session.FileCredentials
	resumes  *client.ResumeClient
	accounts *client.AuthClient
	recorder *metrics.SyncRecorder
	draft    *draft
	history  *versions.History
	redis    *redis.Client
}

func newApp(ctx context.Context, out, errOut io.Writer) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if os.Getenv("RESUME_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	d, err := openDraft(cfg.DraftPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		out:      out,
		logger:   logger,
		creds:    session.NewFileCredentials(cfg.CredentialsPath),
		resumes:  client.NewResumeClient(cfg.BaseURL, cfg.Timeout, client.WithLogger(logger)),
		accounts: client.NewAuthClient(cfg.BaseURL, cfg.Timeout, client.WithLogger(logger)),
		recorder: metrics.NewSyncRecorder(),
		draft:    d,
	}

	var store versions.Store = draftVersions{d: d}
	if cfg.VersionsRedis != "" {
		opts, err := redis.ParseURL(cfg.VersionsRedis)
		if err != nil {
			return nil, fmt.Errorf("parse RESUME_VERSIONS_REDIS: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("ping versions redis: %w", err)
		}
		store = versions.NewRedisStore(a.redis, cfg.VersionsTTL)
	}
	a.history = versions.NewHistory(store, versionOwner(cfg.DraftPath))
	return a, nil
}

func versionOwner(draftPath string) string {
	if abs, err := filepath.Abs(draftPath); err == nil {
		return abs
	}
	return draftPath
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "show":
		return a.show(args)
	case "set":
		return a.edit(func(doc resume.Document) (resume.Document, error) { return applySet(doc, args) })
	case "add":
		return a.edit(func(doc resume.Document) (resume.Document, error) { return applyAdd(doc, args) })
	case "remove":
		return a.edit(func(doc resume.Document) (resume.Document, error) { return applyRemove(doc, args) })
	case "tag":
		return a.edit(func(doc resume.Document) (resume.Document, error) { return applyTag(doc, args) })
	case "pull":
		return a.pull(ctx)
	case "save":
		return a.save(ctx)
	case "snapshot":
		return a.snapshot(ctx, strings.Join(args, " "))
	case "versions":
		return a.listVersions(ctx)
	case "restore":
		if len(args) != 1 {
			return errors.New("usage: restore <id>")
		}
		return a.restore(ctx, args[0])
	case "export-html":
		if len(args) != 1 {
			return errors.New("usage: export-html <path>")
		}
		return a.exportHTML(args[0])
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "password (min 6 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	msg, err := a.accounts.Signup(ctx, *name, *email, *password)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	res, err := a.accounts.Login(ctx, *email, *password)
	if err != nil {
		return describe(err)
	}
	if err := a.creds.Set(res.Credentials); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\n", res.Message, res.User.Email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	creds, ok := a.creds.Credentials()
	if ok {
		if err := a.accounts.Logout(ctx, creds); err != nil {
			a.logger.Warn("remote logout failed", slog.Any("error", err))
		}
	}
	if err := a.creds.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) show(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	raw := fs.String("format", string(export.FormatPlainText), "plain-text or html-fragment")
	summary := fs.Bool("counts", false, "print item counts per section instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *summary {
		c := preview.Project(a.draft.doc).Counts
		fmt.Fprintf(a.out, "work experience: %d\neducation: %d\nskills: %d\ncertifications: %d\nprojects: %d\ncustom sections: %d\n",
			c.WorkExperience, c.Education, c.Skills, c.Certifications, c.Projects, c.CustomSections)
		return nil
	}
	format, err := export.ParseFormat(*raw)
	if err != nil {
		return err
	}
	out, err := export.Serialize(a.draft.doc, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, out)
	return nil
}

func (a *app) edit(apply func(resume.Document) (resume.Document, error)) error {
	next, err := apply(a.draft.doc)
	if err != nil {
		return err
	}
	next.Versions = a.draft.doc.Versions
	a.draft.doc = next
	return a.draft.save()
}

func (a *app) synchronizer() *session.Synchronizer {
	return session.New(a.resumes, a.creds,
		session.WithLogger(a.logger),
		session.WithLoadRetry(a.cfg.LoadRetries, a.cfg.RetryBase),
		session.WithRecorder(a.recorder),
	)
}

func (a *app) pull(ctx context.Context) error {
	s := a.synchronizer()
	defer s.Close()
	defer a.pushMetrics(ctx)

	res := s.Load(ctx)
	fmt.Fprintln(a.out, res.Message)
	switch res.Status {
	case session.StatusOK:
		doc := s.Document()
		doc.Versions = a.draft.doc.Versions
		a.draft.doc = doc
		return a.draft.save()
	case session.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("pull: %s", res.Status)
	}
}

func (a *app) save(ctx context.Context) error {
	s := a.synchronizer()
	defer s.Close()
	defer a.pushMetrics(ctx)

	loaded := s.Load(ctx)
	switch loaded.Status {
	case session.StatusOK, session.StatusNotFound:
	default:
		fmt.Fprintln(a.out, loaded.Message)
		return fmt.Errorf("save: %s", loaded.Status)
	}

	res := s.Save(ctx, a.draft.doc)
	fmt.Fprintln(a.out, res.Message)
	if !res.OK() {
		return fmt.Errorf("save: %s", res.Status)
	}
	return nil
}

func (a *app) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := a.recorder.Push(pushCtx, a.cfg.PushgatewayURL, pushJob); err != nil {
		a.logger.Warn("push sync metrics failed", slog.Any("error", err))
	}
}

func (a *app) snapshot(ctx context.Context, name string) error {
	v, err := a.history.Snapshot(ctx, a.draft.doc, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %q as %s\n", v.Name, v.ID)
	return nil
}

func (a *app) listVersions(ctx context.Context) error {
	list, err := a.history.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No versions yet")
		return nil
	}
	for _, v := range list {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", v.ID, v.Timestamp.Local().Format("2006-01-02 15:04"), v.Name)
	}
	return nil
}

func (a *app) restore(ctx context.Context, id string) error {
	doc, err := a.history.Restore(ctx, id)
	if err != nil {
		return err
	}
	doc.Versions = a.draft.doc.Versions
	a.draft.doc = doc
	if err := a.draft.save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %s into the draft\n", id)
	return nil
}

func (a *app) exportHTML(path string) error {
	page, err := export.HTMLDocument(a.draft.doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Wrote %s\n", path)
	return nil
}

// describe 优先展示服务端返回的 message。
func describe(err error) error {
	var se *client.StatusError
	if errors.As(err, &se) && se.ServerMessage() != "" {
		return errors.New(se.ServerMessage())
	}
	return err
}

func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("index %q: %w", raw, editor.ErrIndexOutOfRange)
	}
	return i, nil
}
