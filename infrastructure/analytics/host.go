package analytics

import "strings"

const (
	cardUpdatrSuffix = ".cardupdatr.app"
	unknownInstance  = "unknown"
)

var funnelPages = []string{
	"/select-merchants",
	"/user-data-collection",
	"/credential-entry",
}

// HostFI is the FI and instance a GA host name belongs to
type HostFI struct {
	FIKey        string
	Instance     string
	IsCardUpdatr bool
}

// ResolveFIFromHost extracts the FI key and instance from a host name.
// CardUpdatr hosts look like {fi}.{instance}.cardupdatr.app; other hosts
// split into the first label and the rest. It returns nil for an empty host.
func ResolveFIFromHost(host string) *HostFI {
	if host == "" {
		return nil
	}

	if strings.HasSuffix(host, cardUpdatrSuffix) {
		prefix := strings.TrimSuffix(host, cardUpdatrSuffix)
		if prefix == "" {
			return &HostFI{FIKey: host, Instance: unknownInstance, IsCardUpdatr: true}
		}
		parts := strings.Split(prefix, ".")
		if len(parts) == 1 {
			return &HostFI{FIKey: parts[0], Instance: parts[0], IsCardUpdatr: true}
		}
		fi, instance := parts[0], parts[1]
		if instance == "" {
			instance = fi
		}
		if fi == "default" && instance == "advancial-prod" {
			fi = "advancial-prod"
		}
		return &HostFI{FIKey: fi, Instance: instance, IsCardUpdatr: true}
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return &HostFI{FIKey: parts[0], Instance: strings.Join(parts[1:], ".")}
	}
	return &HostFI{FIKey: host, Instance: unknownInstance}
}

// IsFunnelPage reports whether path is one of the CardUpdatr funnel pages.
func IsFunnelPage(path string) bool {
	for _, prefix := range funnelPages {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// NormalizeGADate turns GA's YYYYMMDD into YYYY-MM-DD. Values that already
// contain a dash pass through; anything else yields fallback.
func NormalizeGADate(value, fallback string) string {
	switch {
	case value == "":
		return fallback
	case strings.Contains(value, "-"):
		return value
	case len(value) == 8:
		return value[:4] + "-" + value[4:6] + "-" + value[6:]
	default:
		return fallback
	}
}
