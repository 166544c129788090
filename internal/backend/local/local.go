// Package local implements a simulated backend. It never calls a cloud API;
// created resources get deterministic ARN-like identifiers so repeated runs
// and tests produce stable output.
package local

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/sourceplane/liteiac/internal/backend"
	"github.com/sourceplane/liteiac/internal/model"
)

// Options configures the simulated account
type Options struct {
	Account string
	Region  string
	Stack   string
	// Zones maps a domain name to a hosted zone id for DnsZone imports
	Zones map[string]string
	// Imports maps "Kind/key" to an identifier for every other import kind
	Imports map[string]string
	Log     logr.Logger
}

// Backend is the simulated provisioning backend
type Backend struct {
	opts Options

	mu      sync.Mutex
	created map[string]model.Output
}

var _ backend.Backend = (*Backend)(nil)

var namespace = uuid.MustParse("6f1c3f5e-4d8a-4b57-9a52-0d5b8f4e2c11")

// New creates a local backend. Missing account and region fall back to
// placeholder values.
func New(opts Options) *Backend {
	if opts.Account == "" {
		opts.Account = "000000000000"
	}
	if opts.Region == "" {
		opts.Region = "local-1"
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	return &Backend{opts: opts, created: make(map[string]model.Output)}
}

type kindInfo struct {
	service string
	prefix  string
}

var services = map[model.Kind]kindInfo{
	model.KindNetwork:      {"ec2", "vpc"},
	model.KindCluster:      {"ecs", "cluster"},
	model.KindTask:         {"ecs", "task-definition"},
	model.KindContainer:    {"ecs", "container"},
	model.KindService:      {"ecs", "service"},
	model.KindLoadBalancer: {"elasticloadbalancing", "loadbalancer"},
	model.KindFileSystem:   {"elasticfilesystem", "file-system"},
	model.KindDnsZone:      {"route53", "hostedzone"},
	model.KindRole:         {"iam", "role"},
	model.KindPolicy:       {"iam", "policy"},
}

// ARN returns the identifier the backend assigns to a node
func (b *Backend) ARN(kind model.Kind, id string) string {
	info, ok := services[kind]
	if !ok {
		info = kindInfo{service: "unknown", prefix: strings.ToLower(string(kind))}
	}
	return fmt.Sprintf("arn:local:%s:%s:%s:%s/%s/%s", info.service, b.opts.Region, b.opts.Account, info.prefix, b.opts.Stack, id)
}

func (b *Backend) physicalID(prefix, id string) string {
	u := uuid.NewSHA1(namespace, []byte(b.opts.Account+"/"+b.opts.Region+"/"+b.opts.Stack+"/"+id))
	return prefix + "-" + strings.ReplaceAll(u.String(), "-", "")[:17]
}

// Create simulates creation of a node
func (b *Backend) Create(ctx context.Context, node model.ResourceNode, deps map[string]model.Output) (model.Output, error) {
	if err := ctx.Err(); err != nil {
		return model.Output{}, err
	}
	if err := validate(node); err != nil {
		return model.Output{}, err
	}

	out := model.Output{
		ID:         b.ARN(node.Kind, node.ID),
		Attributes: b.attributes(node),
	}
	if len(deps) > 0 {
		names := make([]string, 0, len(deps))
		for id := range deps {
			names = append(names, id)
		}
		sort.Strings(names)
		out.Attributes["dependsOn"] = strings.Join(names, ",")
	}

	b.mu.Lock()
	b.created[node.ID] = out
	b.mu.Unlock()

	b.opts.Log.V(1).Info("created resource", "node", node.ID, "kind", node.Kind, "arn", out.ID)
	return out, nil
}

func (b *Backend) attributes(node model.ResourceNode) map[string]string {
	attrs := map[string]string{
		"name": stringValue(node.Config, "name", node.ID),
	}
	switch node.Kind {
	case model.KindNetwork:
		attrs["vpcId"] = b.physicalID("vpc", node.ID)
		attrs["cidr"] = stringValue(node.Config, "cidr", "10.0.0.0/16")
		attrs["maxAzs"] = stringValue(node.Config, "maxAzs", "3")
	case model.KindCluster:
		attrs["clusterName"] = attrs["name"]
	case model.KindTask:
		attrs["family"] = stringValue(node.Config, "family", node.ID)
		attrs["cpu"] = stringValue(node.Config, "cpu", "256")
		attrs["memory"] = stringValue(node.Config, "memoryMiB", "512")
		attrs["revision"] = "1"
	case model.KindContainer:
		attrs["image"] = stringValue(node.Config, "image", "")
	case model.KindService:
		attrs["desiredCount"] = stringValue(node.Config, "desiredCount", "1")
	case model.KindLoadBalancer:
		attrs["dnsName"] = fmt.Sprintf("%s.%s.elb.local", b.physicalID(node.ID, node.ID), b.opts.Region)
	case model.KindFileSystem:
		attrs["fileSystemId"] = b.physicalID("fs", node.ID)
	case model.KindRole, model.KindPolicy:
		attrs["arn"] = fmt.Sprintf("arn:local:iam::%s:%s/%s", b.opts.Account, services[node.Kind].prefix, attrs["name"])
	}
	return attrs
}

// Lookup resolves an import from the configured zones and imports
func (b *Backend) Lookup(ctx context.Context, ref model.ImportRef) (model.ExternalHandle, error) {
	if err := ctx.Err(); err != nil {
		return model.ExternalHandle{}, err
	}

	if ref.Kind == model.KindDnsZone {
		zoneID, ok := lookupFold(b.opts.Zones, ref.Key)
		if !ok {
			return model.ExternalHandle{}, fmt.Errorf("hosted zone for %q: %w", ref.Key, backend.ErrNotFound)
		}
		return model.ExternalHandle{
			Ref: ref,
			ID:  zoneID,
			Attributes: map[string]string{
				"zoneId":   zoneID,
				"zoneName": ref.Key,
			},
		}, nil
	}

	id, ok := lookupFold(b.opts.Imports, fmt.Sprintf("%s/%s", ref.Kind, ref.Key))
	if !ok {
		return model.ExternalHandle{}, fmt.Errorf("%s %q: %w", ref.Kind, ref.Key, backend.ErrNotFound)
	}
	return model.ExternalHandle{Ref: ref, ID: id, Attributes: map[string]string{"key": ref.Key}}, nil
}

// Created returns the outputs created through this backend, keyed by node id
func (b *Backend) Created() map[string]model.Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]model.Output, len(b.created))
	for k, v := range b.created {
		out[k] = v
	}
	return out
}

// lookupFold finds key in m ignoring case; config keys arrive lowercased
func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func validate(node model.ResourceNode) error {
	if !node.Kind.Valid() {
		return fmt.Errorf("unsupported kind %q", node.Kind)
	}
	switch node.Kind {
	case model.KindContainer:
		if stringValue(node.Config, "image", "") == "" {
			return fmt.Errorf("container %s requires an image", node.ID)
		}
	case model.KindTask:
		for _, key := range []string{"cpu", "memoryMiB"} {
			raw := stringValue(node.Config, key, "")
			if raw == "" {
				continue
			}
			if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
				return fmt.Errorf("task %s: %s must be a positive integer, got %q", node.ID, key, raw)
			}
		}
	}
	return nil
}

func stringValue(config map[string]interface{}, key, fallback string) string {
	v, ok := config[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
