package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// OPCUAConfig describes the OPC UA server telemetry is mirrored to.
type OPCUAConfig struct {
	Endpoint        string            `yaml:"endpoint"`
	Username        string            `yaml:"username"`
	Password        string            `yaml:"password"`
	SecurityMode    string            `yaml:"security_mode"`
	SecurityPolicy  string            `yaml:"security_policy"`
	ApplicationName string            `yaml:"application_name"`
	BatchSize       int               `yaml:"batch_size"`
	Nodes           []OPCUANodeConfig `yaml:"nodes"`
}

// OPCUANodeConfig maps a telemetry field onto a writable node.
type OPCUANodeConfig struct {
	Field  string `yaml:"field"`
	NodeID string `yaml:"node_id"`
}

func (c *OPCUAConfig) Enabled() bool { return c.Endpoint != "" }

func (c *OPCUAConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Nominal Demo Client"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
}

func (c *OPCUAConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for _, n := range c.Nodes {
		if n.Field == "" || n.NodeID == "" {
			return fmt.Errorf("node %+v: field and node_id are required", n)
		}
		if _, err := ua.ParseNodeID(n.NodeID); err != nil {
			return fmt.Errorf("parse node id %q: %w", n.NodeID, err)
		}
	}
	return nil
}

// OPCUASink writes every sample of a mapped field to its node, stamped with
// epoch + simulation time.
type OPCUASink struct {
	cfg    OPCUAConfig
	epoch  time.Time
	nodes  map[string]*ua.NodeID
	mu     sync.Mutex
	client *opcua.Client
}

func NewOPCUASink(cfg OPCUAConfig, epoch time.Time) (*OPCUASink, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes := make(map[string]*ua.NodeID, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		id, err := ua.ParseNodeID(n.NodeID)
		if err != nil {
			return nil, fmt.Errorf("parse node id %q: %w", n.NodeID, err)
		}
		nodes[n.Field] = id
	}
	return &OPCUASink{cfg: cfg, epoch: epoch.UTC(), nodes: nodes}, nil
}

func (s *OPCUASink) Name() string { return "opcua" }

func (s *OPCUASink) WriteSeries(ctx context.Context, series *domain.Series) error {
	if series == nil {
		return nil
	}
	nodeID, ok := s.nodes[series.Field]
	if !ok {
		return nil
	}
	values, err := BuildWriteValues(nodeID, s.epoch, series)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	client, err := s.connect(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(values); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(values) {
			end = len(values)
		}
		resp, err := client.Write(ctx, &ua.WriteRequest{NodesToWrite: values[start:end]})
		if err != nil {
			return fmt.Errorf("opcua write: %w", err)
		}
		for i, status := range resp.Results {
			if status != ua.StatusOK {
				return fmt.Errorf("opcua write sample %d to %s: %s", start+i, nodeID, status)
			}
		}
	}
	return nil
}

// Close releases the session if one was opened.
func (s *OPCUASink) Close(ctx context.Context) error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	if err := client.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *OPCUASink) connect(ctx context.Context) (*opcua.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	client, err := opcua.NewClient(s.cfg.Endpoint, s.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *OPCUASink) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(s.cfg.SecurityMode)),
		opcua.SecurityPolicy(s.cfg.SecurityPolicy),
		opcua.ApplicationName(s.cfg.ApplicationName),
	}
	if s.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(s.cfg.Username, s.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

// BuildWriteValues converts every numeric sample into a timestamped write.
// Samples with a missing time or field are skipped.
func BuildWriteValues(nodeID *ua.NodeID, epoch time.Time, series *domain.Series) ([]*ua.WriteValue, error) {
	out := make([]*ua.WriteValue, 0, len(series.Samples))
	for _, sample := range series.Samples {
		if sample.Time == nil {
			continue
		}
		raw, ok := sample.Field(series.Field)
		if !ok {
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			continue
		}
		variant, err := ua.NewVariant(f)
		if err != nil {
			return nil, fmt.Errorf("opcua variant: %w", err)
		}
		out = append(out, &ua.WriteValue{
			NodeID:      nodeID,
			AttributeID: ua.AttributeIDValue,
			Value: &ua.DataValue{
				EncodingMask:    ua.DataValueValue | ua.DataValueSourceTimestamp,
				Value:           variant,
				SourceTimestamp: SampleTime(epoch, *sample.Time),
			},
		})
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

var _ ports.Sink = (*OPCUASink)(nil)
