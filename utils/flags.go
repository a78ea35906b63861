package utils

import (
	"flag"
	"strings"
	"time"
)

// FlagGetter reads configuration values defined as flags in main.
type FlagGetter interface {
	GetString(name string) string
	GetBool(name string) bool
	GetInt(name string) int
	GetDuration(name string) time.Duration
}

type lookupFlagGetter struct{}

func (lookupFlagGetter) GetString(name string) string {
	return flag.Lookup(name).Value.(flag.Getter).Get().(string)
}

func (lookupFlagGetter) GetBool(name string) bool {
	return flag.Lookup(name).Value.(flag.Getter).Get().(bool)
}

func (lookupFlagGetter) GetInt(name string) int {
	return flag.Lookup(name).Value.(flag.Getter).Get().(int)
}

func (lookupFlagGetter) GetDuration(name string) time.Duration {
	return flag.Lookup(name).Value.(flag.Getter).Get().(time.Duration)
}

// FlagProvider is swapped out in tests so flag values can be fixed
// without calling flag.Parse twice.
var FlagProvider FlagGetter = lookupFlagGetter{}

func CertViewURL() string {
	return strings.TrimRight(FlagProvider.GetString("certviewurl"), "/")
}

func AuthURL() string {
	return FlagProvider.GetString("authurl")
}

func APIUsername() string {
	return FlagProvider.GetString("username")
}

func APIPassword() string {
	return FlagProvider.GetString("password")
}

func PageSize() int {
	return FlagProvider.GetInt("pagesize")
}

// MaxPages is an optional guard against an upstream that never returns
// a short page. Zero means unlimited.
func MaxPages() int {
	return FlagProvider.GetInt("maxpages")
}

func RequestTimeout() time.Duration {
	return FlagProvider.GetDuration("timeout")
}

func SyncInterval() time.Duration {
	return FlagProvider.GetDuration("syncinterval")
}

func DebugMode() bool {
	return FlagProvider.GetBool("debug")
}

func LogLevel() string {
	if DebugMode() {
		return "debug"
	}
	return "info"
}

func RedisHost() string {
	return FlagProvider.GetString("redis-host")
}

func RedisPort() string {
	return FlagProvider.GetString("redis-port")
}

func RedisPassword() string {
	return FlagProvider.GetString("redis-password")
}

func GetBasicAuthUser() string {
	return FlagProvider.GetString("basicauthuser")
}

func GetBasicAuthPassword() string {
	return FlagProvider.GetString("basicauthpassword")
}
