// Package kvm drives a KVM-in-Docker virtual machine defined by a compose
// file: lifecycle through `docker compose`, status through the Docker API,
// and SSH, VNC and VS Code remote access through the published ports.
package kvm

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoService is returned when the compose file has no usable service.
	ErrNoService = errors.New("service not found in compose file")
	// ErrNoPorts is returned when the service publishes no ports.
	ErrNoPorts = errors.New("no published ports")
	// ErrComposeSyntax is returned when the compose file is not valid YAML.
	ErrComposeSyntax = errors.New("invalid compose YAML")
)

// PortMapping is one published port.
type PortMapping struct {
	HostIP        string
	HostPort      int // 0 when docker picks the port
	ContainerPort int
	Protocol      string
}

func (p PortMapping) String() string {
	host := strconv.Itoa(p.HostPort)
	if p.HostPort == 0 {
		host = "auto"
	}
	if p.HostIP != "" {
		host = p.HostIP + ":" + host
	}
	return fmt.Sprintf("%s -> %d/%s", host, p.ContainerPort, p.Protocol)
}

// HostPortFor returns the host port published for a TCP container port.
func HostPortFor(mappings []PortMapping, containerPort int) (int, bool) {
	for _, m := range mappings {
		if m.ContainerPort == containerPort && m.Protocol == "tcp" && m.HostPort != 0 {
			return m.HostPort, true
		}
	}
	return 0, false
}

// ComposeService is what devbox needs from a compose service.
type ComposeService struct {
	Name          string
	ContainerName string
	Ports         []PortMapping
}

// ParseCompose decodes the compose file and returns the named service, or
// the first service when name is empty.
func ParseCompose(data []byte, name string) (*ComposeService, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrComposeSyntax, err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrNoService
	}

	services := mappingValue(doc.Content[0], "services")
	if services == nil || services.Kind != yaml.MappingNode || len(services.Content) == 0 {
		return nil, ErrNoService
	}

	var svcNode *yaml.Node
	if name == "" {
		name = services.Content[0].Value
		svcNode = resolve(services.Content[1])
	} else {
		svcNode = mappingValue(services, name)
	}
	if svcNode == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoService, name)
	}

	svc := &ComposeService{Name: name}
	if cn := mappingValue(svcNode, "container_name"); cn != nil {
		svc.ContainerName = interpolate(cn.Value)
	}

	ports := mappingValue(svcNode, "ports")
	if ports == nil {
		return svc, nil
	}
	for _, item := range ports.Content {
		mappings, err := decodePort(resolve(item))
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", name, err)
		}
		svc.Ports = append(svc.Ports, mappings...)
	}
	return svc, nil
}

// ParsePorts returns the published ports of a service. When the YAML
// decoder rejects the file, the indentation scanner is used instead.
func ParsePorts(data []byte, service string) ([]PortMapping, error) {
	svc, err := ParseCompose(data, service)
	if err == nil {
		if len(svc.Ports) == 0 {
			return nil, ErrNoPorts
		}
		return svc.Ports, nil
	}
	if !errors.Is(err, ErrComposeSyntax) {
		return nil, err
	}

	specs, scanErr := ScanPorts(data, service)
	if scanErr != nil {
		return nil, fmt.Errorf("%w (fallback scanner: %v)", err, scanErr)
	}

	var out []PortMapping
	for _, s := range specs {
		m, perr := ParsePortSpec(s)
		if perr != nil {
			return nil, perr
		}
		out = append(out, m...)
	}
	return out, nil
}

// mappingValue looks key up in a mapping, following aliases and merge
// keys. Keys set directly win over merged ones.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var merged []*yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case key:
			return resolve(node.Content[i+1])
		case "<<":
			merged = append(merged, resolve(node.Content[i+1]))
		}
	}
	for _, m := range merged {
		sources := []*yaml.Node{m}
		if m.Kind == yaml.SequenceNode {
			sources = m.Content
		}
		for _, src := range sources {
			if v := mappingValue(src, key); v != nil {
				return v
			}
		}
	}
	return nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// longPort is the compose long port syntax.
type longPort struct {
	Target    int    `yaml:"target"`
	Published string `yaml:"published"`
	HostIP    string `yaml:"host_ip"`
	Protocol  string `yaml:"protocol"`
}

func decodePort(node *yaml.Node) ([]PortMapping, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return ParsePortSpec(node.Value)
	case yaml.MappingNode:
		var lp longPort
		if err := node.Decode(&lp); err != nil {
			return nil, fmt.Errorf("invalid port entry at line %d: %w", node.Line, err)
		}
		if lp.Target == 0 {
			return nil, fmt.Errorf("port entry at line %d has no target", node.Line)
		}
		proto := lp.Protocol
		if proto == "" {
			proto = "tcp"
		}
		published := interpolate(lp.Published)
		if published == "" {
			return []PortMapping{{HostIP: lp.HostIP, ContainerPort: lp.Target, Protocol: proto}}, nil
		}
		// A published range with one target lets docker pick from the
		// range; the first port is reported.
		hostFrom, _, err := parseRange(published)
		if err != nil {
			return nil, err
		}
		return []PortMapping{{HostIP: lp.HostIP, HostPort: hostFrom, ContainerPort: lp.Target, Protocol: proto}}, nil
	default:
		return nil, fmt.Errorf("unsupported port entry at line %d", node.Line)
	}
}

// FirstService returns the name of the first service in the compose file.
func FirstService(data []byte) (string, error) {
	svc, err := ParseCompose(data, "")
	if err != nil {
		return "", err
	}
	return svc.Name, nil
}

// ContainerName returns the container_name set for service, if any.
func ContainerName(data []byte, service string) (string, error) {
	svc, err := ParseCompose(data, service)
	if err != nil {
		return "", err
	}
	return svc.ContainerName, nil
}
