package compose

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/kan/routeadd/config"
)

// Options are the inputs of a single transformation
type Options struct {
	AppPath    string // Application directory; its base name names the router
	URLPath    string // Path prefix routed to the service, e.g. "/consult"
	Host       string // Optional host constraint
	Network    string // Shared network, defaults to "web"
	EntryPoint string // Traefik entrypoint, defaults to "web"

	// Drop "/tcp" style suffixes from ports entries before parsing them
	StripProtocol bool
}

// Result describes what Apply did to a document
type Result struct {
	Service       string
	Port          int
	Route         config.RouteConfig
	Labels        []string // routing labels written to the service
	JoinedNetwork bool     // service was added to the shared network
	DeclaredNet   bool     // shared network was declared at document level
}

// Apply routes the document's entry service according to opts.
// Only the in-memory document is changed; see Transformer for the file side.
func Apply(doc *Document, opts Options) (*Result, error) {
	network := opts.Network
	if network == "" {
		network = "web"
	}

	name := SelectService(doc.ServiceNames())
	svc, err := doc.service(name)
	if err != nil {
		return nil, err
	}

	// Settings inherited through "<<" count as the service's own
	route := config.RouteConfig{
		Router:     config.RouterName(opts.AppPath),
		Host:       opts.Host,
		PathPrefix: opts.URLPath,
		Port:       inferPort(portEntries(lookup(svc, "ports")), opts.StripProtocol),
		EntryPoint: opts.EntryPoint,
	}

	current := ownValue(svc, "labels")
	labels, err := ReadLabels(current)
	if err != nil {
		return nil, doc.schemaError(err)
	}
	routing := route.Labels()
	setMappingValue(svc, "labels", labelsNode(MergeLabels(labels.Normalize(), routing), current))

	joined, err := attachServiceNetwork(svc, network)
	if err != nil {
		return nil, doc.schemaError(err)
	}
	declared, err := declareExternalNetwork(doc.top, network)
	if err != nil {
		return nil, doc.schemaError(err)
	}

	return &Result{
		Service:       name,
		Port:          route.Port,
		Route:         route,
		Labels:        routing,
		JoinedNetwork: joined,
		DeclaredNet:   declared,
	}, nil
}

// Transformer applies routing to the compose file of an application
// directory and writes it back, keeping a backup of the previous version.
type Transformer struct {
	ComposeFile string // File name inside the app directory
	Network     string
	EntryPoint  string
	DryRun      bool // Report the change without writing anything

	StripProtocol bool

	Now func() time.Time
}

// Outcome is the result of a Transformer run
type Outcome struct {
	*Result
	ComposePath string
	BackupPath  string // empty when nothing was written
	Changed     bool
	Diff        string // set on dry runs
}

// NewTransformer creates a transformer with the given settings
func NewTransformer(settings config.Settings) *Transformer {
	return &Transformer{
		ComposeFile: settings.ComposeFile,
		Network:     settings.Network,
		EntryPoint:  settings.EntryPoint,
		Now:         time.Now,

		StripProtocol: settings.StripPortProtocol,
	}
}

// Run loads, transforms and saves the compose file of appPath.
// The document is validated and transformed before the backup is taken, so
// invalid files leave no backup behind. The file is only replaced once the
// backup exists.
func (t *Transformer) Run(appPath, urlPath, host string) (*Outcome, error) {
	composePath := filepath.Join(appPath, t.composeFile())

	doc, err := Load(composePath)
	if err != nil {
		return nil, err
	}

	result, err := Apply(doc, Options{
		AppPath:    appPath,
		URLPath:    urlPath,
		Host:       host,
		Network:    t.Network,
		EntryPoint: t.EntryPoint,

		StripProtocol: t.StripProtocol,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("target service", "service", result.Service)
	slog.Info("detected port", "port", result.Port)
	slog.Debug("routing labels", "labels", result.Labels)

	rendered, err := doc.Render()
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Result:      result,
		ComposePath: composePath,
		Changed:     !bytes.Equal(rendered, doc.Original()),
	}

	if t.DryRun {
		outcome.Diff = Diff(string(doc.Original()), string(rendered))
		return outcome, nil
	}

	if !outcome.Changed {
		slog.Info("compose file already up to date", "path", composePath)
		return outcome, nil
	}

	backup, err := Backup(composePath, t.now())
	if err != nil {
		return nil, err
	}
	outcome.BackupPath = backup
	slog.Info("backup created", "path", backup)

	if err := doc.Save(); err != nil {
		return nil, fmt.Errorf("%w (previous version kept at %s)", err, backup)
	}

	slog.Info("labels added", "router", result.Route.Router, "count", len(result.Labels))
	return outcome, nil
}

func (t *Transformer) composeFile() string {
	if t.ComposeFile == "" {
		return "docker-compose.yml"
	}
	return t.ComposeFile
}

func (t *Transformer) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
