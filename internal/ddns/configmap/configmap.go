// Package configmap publishes the address as a hosts-file line inside a
// Kubernetes ConfigMap, for consumption by CoreDNS's hosts plugin or similar.
package configmap

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/ddns"
)

// DefaultKey is the ConfigMap data key holding the hosts file.
const DefaultKey = "hosts"

var scheme = runtime.NewScheme()

func init() {
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		ddns.RegisterServiceError("configmap", err)
		return
	}
	ddns.RegisterService("configmap", func(log logr.Logger, settings map[string]string) (ddns.Service, error) {
		return New(log, settings)
	})
}

// Service implements ddns.Service on top of a ConfigMap.
type Service struct {
	client client.Client
	key    types.NamespacedName
	field  string
	fqdn   string
	log    logr.Logger
}

// New creates a ConfigMap service from the given settings map, connecting
// with the kubeconfig setting if given and the ambient cluster config
// otherwise.
// Required settings: host, domain, namespace, name.
// Optional settings: key (default "hosts"), kubeconfig.
func New(log logr.Logger, settings map[string]string) (*Service, error) {
	if err := validate(settings); err != nil {
		return nil, err
	}

	var (
		cfg *rest.Config
		err error
	)
	if path := settings["kubeconfig"]; path != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", path)
	} else {
		cfg, err = ctrl.GetConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("configmap: loading cluster config: %w: %w", ddns.ErrServiceConfig, err)
	}

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("configmap: creating client: %w: %w", ddns.ErrServiceConfig, err)
	}
	return NewWithClient(log, settings, c)
}

// NewWithClient is like New but uses an existing client.
func NewWithClient(log logr.Logger, settings map[string]string, c client.Client) (*Service, error) {
	if err := validate(settings); err != nil {
		return nil, err
	}

	field := settings["key"]
	if field == "" {
		field = DefaultKey
	}

	return &Service{
		client: c,
		key:    types.NamespacedName{Namespace: settings["namespace"], Name: settings["name"]},
		field:  field,
		fqdn:   ddns.JoinHostname(settings["host"], settings["domain"]),
		log:    log,
	}, nil
}

func validate(settings map[string]string) error {
	return ddns.RequireSettings("configmap", settings, "host", "domain", "namespace", "name")
}

// Update rewrites the hosts entry for the configured name to ip, creating
// the ConfigMap if it does not exist. Conflicting writes are retried.
func (s *Service) Update(ctx context.Context, ip string) (bool, error) {
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var cm corev1.ConfigMap
		err := s.client.Get(ctx, s.key, &cm)
		if apierrors.IsNotFound(err) {
			s.log.V(1).Info("configmap not found, creating", "configmap", s.key, "fqdn", s.fqdn, "ip", ip)
			cm = corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Namespace: s.key.Namespace, Name: s.key.Name},
				Data:       map[string]string{s.field: ip + " " + s.fqdn + "\n"},
			}
			return s.client.Create(ctx, &cm)
		}
		if err != nil {
			return err
		}

		hosts, current := setHost(cm.Data[s.field], s.fqdn, ip)
		if current == ip {
			s.log.V(1).Info("host IP is current, not updating", "fqdn", s.fqdn, "ip", ip)
			return nil
		}

		s.log.V(1).Info("host has old IP, updating", "fqdn", s.fqdn, "old", current, "new", ip, "configmap", s.key)
		if cm.Data == nil {
			cm.Data = map[string]string{}
		}
		cm.Data[s.field] = hosts
		return s.client.Update(ctx, &cm)
	})
	if err != nil {
		return false, fmt.Errorf("configmap: updating %s: %w: %w", s.key, ddns.ErrServiceUpdateFailed, err)
	}
	return true, nil
}

// setHost returns hosts with fqdn mapped to ip, and the address fqdn was
// mapped to before ("" if it was absent). Comments and unrelated lines are
// preserved.
func setHost(hosts, fqdn, ip string) (string, string) {
	var (
		out     strings.Builder
		current string
	)

	scanner := bufio.NewScanner(strings.NewReader(hosts))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if current == "" && len(fields) >= 2 && !strings.HasPrefix(fields[0], "#") && hasName(fields[1:], fqdn) {
			current = fields[0]
			fields[0] = ip
			line = strings.Join(fields, " ")
		}
		fmt.Fprintln(&out, line)
	}
	if current == "" {
		fmt.Fprintf(&out, "%s %s\n", ip, fqdn)
	}
	return out.String(), current
}

func hasName(names []string, fqdn string) bool {
	for _, n := range names {
		if strings.HasPrefix(n, "#") {
			return false
		}
		if strings.EqualFold(strings.TrimSuffix(n, "."), fqdn) {
			return true
		}
	}
	return false
}
