// Package drivers imports all update method and DNS service packages to
// trigger their init() registration.
package drivers

import (
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/cloudflare"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/configmap"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/digitalocean"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/dummy"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/namecheap"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/opnsense"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/upnp"
	_ "github.com/yuriy-kovalchuk/yk-ddns/internal/ddns/webip"
)
