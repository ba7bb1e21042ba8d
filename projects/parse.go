package projects

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParsePorts reads docker style "host:container" mappings. A single port
// maps to itself.
func ParsePorts(specs []string) (map[int]int, error) {
	ports := map[int]int{}
	for _, s := range specs {
		hostStr, containerStr, ok := strings.Cut(s, ":")
		if !ok {
			containerStr = hostStr
		}
		host, err := parsePort(hostStr)
		if err != nil {
			return nil, errors.Wrapf(err, "port mapping %q", s)
		}
		container, err := parsePort(containerStr)
		if err != nil {
			return nil, errors.Wrapf(err, "port mapping %q", s)
		}
		if _, dup := ports[host]; dup {
			return nil, errors.Errorf("host port %d mapped twice", host)
		}
		ports[host] = container
	}
	return ports, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > 65535 {
		return 0, errors.Errorf("invalid port %q", s)
	}
	return p, nil
}

// ParseEnv reads KEY=VALUE pairs. The value may be empty or contain '='.
func ParseEnv(pairs []string) (map[string]string, error) {
	env := map[string]string{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("environment variable %q is not KEY=VALUE", pair)
		}
		env[k] = v
	}
	return env, nil
}
