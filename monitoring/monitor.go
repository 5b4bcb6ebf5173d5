// Package monitoring serves the live partition usage of running caches over
// HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/cachepart/internal/logging"
	"github.com/sarchlab/cachepart/mem/cache/partitioning"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

// Monitor turns a replay into a server and allows external monitoring of the
// partitioning policies.
type Monitor struct {
	portNumber      int
	openBrowser     bool
	gatherer        prometheus.Gatherer
	profileDuration time.Duration
	logger          *logrus.Logger

	policiesLock sync.Mutex
	policies     map[string]partitioning.UsageReporter

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	listener net.Listener
	server   *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		gatherer:        prometheus.DefaultGatherer,
		profileDuration: time.Second,
		logger:          logging.GetLogger(),
		policies:        make(map[string]partitioning.UsageReporter),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.WithField("port", portNumber).
			Warn("Port number is not allowed for the monitoring server, " +
				"using a random port instead")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser opens the monitoring page once the server starts.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithGatherer sets where the /metrics endpoint collects metrics from.
func (m *Monitor) WithGatherer(gatherer prometheus.Gatherer) *Monitor {
	m.gatherer = gatherer
	return m
}

// WithProfileDuration sets how long CPU profiles are collected.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *logrus.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterPolicy registers a policy to be monitored under a name. The policy
// must be safe to read from other goroutines, see
// partitioning.NewSynchronizedPolicy.
func (m *Monitor) RegisterPolicy(name string, p partitioning.UsageReporter) {
	m.policiesLock.Lock()
	defer m.policiesLock.Unlock()

	m.policies[name] = p
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list of progress.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_policies", m.listPolicies)
	r.HandleFunc("/api/policy/{name}", m.policyUsage)
	r.HandleFunc("/api/policy/{name}/detail", m.policyDetail)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))

	return r
}

// StartServer starts the monitor as a web server. It returns the port that
// the server listens on.
func (m *Monitor) StartServer() (int, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return 0, fmt.Errorf("monitoring: listen on %s: %w", actualPort, err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d/api/list_policies", port)

	m.logger.WithField("url", url).Info("Monitoring partitions")

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			m.logger.WithError(err).Error("Monitoring server stopped")
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			m.logger.WithError(err).Warn("Failed to open browser")
		}
	}

	return port, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) policyNames() []string {
	m.policiesLock.Lock()
	defer m.policiesLock.Unlock()

	names := make([]string, 0, len(m.policies))
	for name := range m.policies {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (m *Monitor) listPolicies(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.policyNames())
}

func (m *Monitor) findPolicyOr404(
	w http.ResponseWriter,
	name string,
) partitioning.UsageReporter {
	m.policiesLock.Lock()
	p := m.policies[name]
	m.policiesLock.Unlock()

	if p == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Policy not found"))
		m.logOnErr(err)
	}

	return p
}

func (m *Monitor) policyUsage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p := m.findPolicyOr404(w, name)
	if p == nil {
		return
	}

	usage := p.Usage()
	if usage == nil {
		usage = []partitioning.PartitionUsage{}
	}

	m.writeJSON(w, usage)
}

// policyState is the serialized state of one policy of a cache.
type policyState struct {
	Policy string          `json:"policy"`
	State  json.RawMessage `json:"state"`
	Usage  json.RawMessage `json:"usage,omitempty"`
}

// A guardedPolicy only allows access to the policy while it holds a lock.
type guardedPolicy interface {
	Do(f func(p partitioning.Policy))
}

func (m *Monitor) policyDetail(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	p := m.findPolicyOr404(w, name)
	if p == nil {
		return
	}

	var (
		states []policyState
		err    error
	)

	if g, ok := p.(guardedPolicy); ok {
		g.Do(func(policy partitioning.Policy) {
			states, err = serializePolicies(policy)
		})
	} else {
		states, err = serializePolicies(p)
	}

	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, states)
}

// serializePolicies serializes the fields of every policy managed by root.
// The usage table of a policy is serialized separately so that its counters
// are reached without following the loggers and hooks of the policy.
func serializePolicies(root any) ([]policyState, error) {
	var roots []any

	switch r := root.(type) {
	case *partitioning.Manager:
		for _, p := range r.Policies() {
			roots = append(roots, p)
		}
	default:
		roots = append(roots, r)
	}

	states := make([]policyState, 0, len(roots))

	for _, item := range roots {
		state, err := serialize(item, nil)
		if err != nil {
			return nil, err
		}

		usage, err := serialize(item, []string{"usage"})
		if err != nil {
			usage = nil
		}

		name := fmt.Sprintf("%T", item)
		if p, ok := item.(partitioning.Policy); ok {
			name = p.Name()
		}

		states = append(states, policyState{
			Policy: name,
			State:  state,
			Usage:  usage,
		})
	}

	return states, nil
}

func serialize(root any, entryPoint []string) (json.RawMessage, error) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(2)

	if len(entryPoint) > 0 {
		if err := serializer.SetEntryPoint(entryPoint); err != nil {
			return nil, err
		}
	}

	buf := bytes.NewBuffer(nil)
	if err := serializer.Serialize(buf); err != nil {
		return nil, err
	}

	return json.RawMessage(buf.Bytes()), nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()

	process, err := process.NewProcess(int32(pid))
	if err != nil {
		m.writeError(w, err)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		m.writeError(w, err)
		return
	}

	memorySize, err := process.MemoryInfo()
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		m.writeError(w, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	m.logOnErr(err)
}

func (m *Monitor) writeError(w http.ResponseWriter, err error) {
	m.logger.WithError(err).Error("Monitoring request failed")

	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "Error: %s", err)
}

func (m *Monitor) logOnErr(err error) {
	if err != nil {
		m.logger.WithError(err).Warn("Failed to write response")
	}
}
