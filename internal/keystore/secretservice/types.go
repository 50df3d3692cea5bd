package secretservice

import "github.com/godbus/dbus/v5"

const (
	BusName     = "org.freedesktop.secrets"
	ServicePath = dbus.ObjectPath("/org/freedesktop/secrets")

	ServiceIface    = "org.freedesktop.Secret.Service"
	CollectionIface = "org.freedesktop.Secret.Collection"
	ItemIface       = "org.freedesktop.Secret.Item"
	SessionIface    = "org.freedesktop.Secret.Session"
	PromptIface     = "org.freedesktop.Secret.Prompt"

	DefaultAlias = "default"

	// LoginCollectionPath is used when the service has no "default" alias.
	LoginCollectionPath = dbus.ObjectPath("/org/freedesktop/secrets/collection/login")

	// NoPrompt is returned by the service when no user interaction is needed.
	NoPrompt = dbus.ObjectPath("/")

	AlgorithmPlain = "plain"
	AlgorithmDH    = "dh-ietf1024-sha256-aes128-cbc-pkcs7"

	errNotSupported = "org.freedesktop.DBus.Error.NotSupported"
)

// Secret is the D-Bus type (oayays) representing an encoded secret.
type Secret struct {
	Session     dbus.ObjectPath
	Parameters  []byte
	Value       []byte
	ContentType string
}

// attributes are the lookup attributes written with every item. They match
// what other Secret Service clients use for service/user passwords, so items
// are shared with them.
func attributes(service, user string) map[string]string {
	return map[string]string{
		"service":  service,
		"username": user,
	}
}

func label(service, user string) string {
	return "Password for '" + user + "' on '" + service + "'"
}
