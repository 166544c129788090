// Package blueprint builds canonical stacks from explicit options.
package blueprint

import (
	"fmt"
	"strings"

	"github.com/sourceplane/liteiac/internal/model"
)

// Feature names used by the game server stack
const (
	FeatureFilesystem   = "filesystem"
	FeatureLoadBalancer = "loadBalancer"
	FeatureWatchdog     = "watchdog"
)

// Options configures the game server stack
type Options struct {
	Name         string
	Image        string
	Port         int
	CPU          int
	MemoryMiB    int
	DesiredCount int
	MaxAzs       int
	LogPrefix    string
	Environment  map[string]string

	// Filesystem adds persistent storage for the world data
	Filesystem bool

	// LoadBalancer fronts the service with a network load balancer
	LoadBalancer bool

	// Domain imports an existing hosted zone; requires LoadBalancer
	Domain string

	// Watchdog adds a sidecar that scales the service to zero when idle
	Watchdog           bool
	WatchdogImage      string
	IdleTimeoutSeconds int
}

// DefaultOptions returns the Minecraft-on-Fargate defaults
func DefaultOptions() Options {
	return Options{
		Name:               "discocraftainer",
		Image:              "itzg/minecraft-server",
		Port:               25565,
		CPU:                1024,
		MemoryMiB:          2048,
		DesiredCount:       1,
		MaxAzs:             3,
		LogPrefix:          "Minecraft",
		Environment:        map[string]string{"EULA": "TRUE"},
		WatchdogImage:      "discocraftainer/watchdog",
		IdleTimeoutSeconds: 600,
	}
}

// fargateMemory lists the memory range (MiB) allowed for each task CPU value
var fargateMemory = map[int][2]int{
	256:  {512, 2048},
	512:  {1024, 4096},
	1024: {2048, 8192},
	2048: {4096, 16384},
	4096: {8192, 30720},
}

// Validate checks the options describe a deployable task
func (o Options) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(o.Image) == "" {
		return fmt.Errorf("image is required")
	}
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("port %d out of range", o.Port)
	}
	bounds, ok := fargateMemory[o.CPU]
	if !ok {
		return fmt.Errorf("unsupported task cpu %d (use 256, 512, 1024, 2048 or 4096)", o.CPU)
	}
	if o.MemoryMiB < bounds[0] || o.MemoryMiB > bounds[1] {
		return fmt.Errorf("memory %d MiB not allowed with cpu %d (range %d-%d)", o.MemoryMiB, o.CPU, bounds[0], bounds[1])
	}
	if o.DesiredCount < 0 {
		return fmt.Errorf("desired count cannot be negative")
	}
	if o.MaxAzs < 1 {
		return fmt.Errorf("maxAzs must be at least 1")
	}
	if o.Domain != "" && !o.LoadBalancer {
		return fmt.Errorf("domain %s requires the load balancer", o.Domain)
	}
	if o.Watchdog && o.IdleTimeoutSeconds <= 0 {
		return fmt.Errorf("watchdog idle timeout must be positive")
	}
	return nil
}

// GameServer builds the container game server stack: a public network, a
// cluster, a task role with log permissions, a Fargate task with the server
// container and a service exposing the game port. Optional parts are gated
// by features so the same document covers every variant.
func GameServer(opts Options) (*model.Stack, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game server options: %w", err)
	}

	title := strings.ToUpper(opts.Name[:1]) + opts.Name[1:]
	stack := &model.Stack{
		APIVersion: model.APIVersion,
		Kind:       model.KindStack,
		Metadata: model.Metadata{
			Name:        opts.Name,
			Description: "Container game server on Fargate",
			Labels:      map[string]string{"blueprint": "gameserver"},
		},
		Features: map[string]bool{
			FeatureFilesystem:   opts.Filesystem,
			FeatureLoadBalancer: opts.LoadBalancer,
			FeatureWatchdog:     opts.Watchdog,
		},
		Vars: map[string]string{
			"image":     opts.Image,
			"port":      fmt.Sprint(opts.Port),
			"logPrefix": opts.LogPrefix,
		},
	}

	environment := make(map[string]interface{}, len(opts.Environment))
	for k, v := range opts.Environment {
		environment[k] = v
	}

	stack.Resources = []model.ResourceDeclaration{
		{
			ID:   "network",
			Kind: model.KindNetwork,
			Config: map[string]interface{}{
				"name":               title + "VPC",
				"maxAzs":             opts.MaxAzs,
				"natGateways":        0,
				"enableDnsHostnames": true,
				"enableDnsSupport":   true,
				"subnets": []interface{}{
					map[string]interface{}{"name": "public", "type": "public", "cidrMask": 24},
				},
			},
		},
		{
			ID:   "cluster",
			Kind: model.KindCluster,
			Config: map[string]interface{}{
				"name":              title + "Cluster",
				"vpc":               "${network.vpcId}",
				"containerInsights": true,
			},
		},
		{
			ID:   "role",
			Kind: model.KindRole,
			Config: map[string]interface{}{
				"name":      title + "TaskRole",
				"assumedBy": "ecs-tasks.amazonaws.com",
			},
		},
		{
			ID:   "policy",
			Kind: model.KindPolicy,
			Config: map[string]interface{}{
				"role":      "${role.name}",
				"actions":   []interface{}{"logs:CreateLogStream", "logs:PutLogEvents"},
				"resources": []interface{}{"*"},
			},
		},
		{
			ID:   "task",
			Kind: model.KindTask,
			Config: map[string]interface{}{
				"family":        title + "TaskDef",
				"cpu":           opts.CPU,
				"memoryMiB":     opts.MemoryMiB,
				"taskRole":      "${role.arn}",
				"executionRole": "${role.arn}",
			},
		},
		{
			ID:   "server",
			Kind: model.KindContainer,
			Config: map[string]interface{}{
				"task":        "${task.family}",
				"image":       "${var.image}",
				"environment": environment,
				"logging": map[string]interface{}{
					"driver":       "awslogs",
					"streamPrefix": "${var.logPrefix}",
				},
				"portMappings": []interface{}{
					map[string]interface{}{
						"containerPort": "${var.port}",
						"hostPort":      "${var.port}",
						"protocol":      "tcp",
					},
				},
			},
		},
		{
			ID:        "service",
			Kind:      model.KindService,
			DependsOn: []string{"policy", "server"},
			Config: map[string]interface{}{
				"cluster":        "${cluster.clusterName}",
				"task":           "${task.family}",
				"desiredCount":   opts.DesiredCount,
				"assignPublicIp": true,
				"ingress": []interface{}{
					map[string]interface{}{"protocol": "tcp", "port": "${var.port}", "cidr": "0.0.0.0/0"},
				},
			},
		},
		{
			ID:   "filesystem",
			Kind: model.KindFileSystem,
			When: FeatureFilesystem,
			Config: map[string]interface{}{
				"vpc":       "${network.vpcId}",
				"task":      "${task.family}",
				"mountPath": "/data",
				"encrypted": true,
			},
		},
		{
			ID:   "watchdog",
			Kind: model.KindContainer,
			When: FeatureWatchdog,
			Config: map[string]interface{}{
				"task":  "${task.family}",
				"image": opts.WatchdogImage,
				"environment": map[string]interface{}{
					"MINECRAFT_IDLE_TIMEOUT": fmt.Sprint(opts.IdleTimeoutSeconds),
					"CLUSTER":                "${cluster.clusterName}",
					"SERVICE":                "${service.name}",
				},
				"logging": map[string]interface{}{
					"driver":       "awslogs",
					"streamPrefix": "Watchdog",
				},
			},
		},
	}

	lb := model.ResourceDeclaration{
		ID:   "loadbalancer",
		Kind: model.KindLoadBalancer,
		When: FeatureLoadBalancer,
		Config: map[string]interface{}{
			"type":     "network",
			"vpc":      "${network.vpcId}",
			"port":     "${var.port}",
			"protocol": "tcp",
			"target":   "${service.name}",
		},
	}
	if opts.Domain != "" {
		stack.Imports = []model.ImportRef{{ID: "zone", Kind: model.KindDnsZone, Key: opts.Domain}}
		lb.Config["zone"] = "${zone.zoneId}"
		lb.Config["recordName"] = opts.Name + "." + opts.Domain
	}
	stack.Resources = append(stack.Resources, lb)

	return stack, nil
}
