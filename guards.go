package administrator

import (
	"context"

	"github.com/pkg/errors"
)

// EnabledChecker reports whether an extension is enabled in a guild
type EnabledChecker interface {
	IsEnabled(ctx context.Context, extension, guildID string) (bool, error)
}

// EnabledGuard silently drops invocations of commands whose extension is disabled in the
// origin guild. Direct messages and commands without an extension are always forwarded.
func EnabledGuard(checker EnabledChecker) MiddleWareFunc {
	return func(next RunFunc) RunFunc {
		return func(data *Data) (interface{}, error) {
			ext := data.Extension()
			if !data.InGuild() || ext == "" {
				return next(data)
			}

			enabled, err := checker.IsEnabled(data.Context(), ext, data.GuildID)
			if err != nil {
				return nil, errors.Wrapf(err, "check %s enabled in %s", ext, data.GuildID)
			}

			if !enabled {
				// No feedback on purpose, the command acts as if it did not exist
				return nil, nil
			}

			return next(data)
		}
	}
}

// OwnerGuard rejects authors that are not bot owners with a NotOwnerError
func OwnerGuard(owners Owners) MiddleWareFunc {
	return func(next RunFunc) RunFunc {
		return func(data *Data) (interface{}, error) {
			if !owners.IsOwner(data.AuthorID) {
				return nil, &NotOwnerError{}
			}

			return next(data)
		}
	}
}

// GuildOnlyGuard rejects direct messages with a NoPrivateContextError
func GuildOnlyGuard(next RunFunc) RunFunc {
	return func(data *Data) (interface{}, error) {
		if !data.InGuild() {
			return nil, &NoPrivateContextError{}
		}

		return next(data)
	}
}

// PermissionGuard checks the author permissions in the origin channel against required,
// a map of flag name to the value it must have. Unknown flag names are reported here
// instead of on invocation.
func PermissionGuard(required map[string]bool) (MiddleWareFunc, error) {
	for name := range required {
		if _, ok := permissionFlags[name]; !ok {
			return nil, errors.Wrap(ErrUnknownPermission, name)
		}
	}

	// Copy so later changes to the callers map has no effect
	req := make(map[string]bool, len(required))
	for k, v := range required {
		req[k] = v
	}

	return func(next RunFunc) RunFunc {
		return func(data *Data) (interface{}, error) {
			missing, err := MissingPermissions(data.Permissions, req)
			if err != nil {
				return nil, err
			}

			if len(missing) > 0 {
				return nil, &MissingPermissionsError{Missing: missing}
			}

			return next(data)
		}
	}, nil
}

// MustPermissionGuard is like PermissionGuard but panics on unknown flags
func MustPermissionGuard(required map[string]bool) MiddleWareFunc {
	mw, err := PermissionGuard(required)
	if err != nil {
		panic(err)
	}
	return mw
}

// GuardOptions describes the guards of a guild scoped command
type GuardOptions struct {
	// Enabled adds the enabled guard when set
	Enabled EnabledChecker
	// GuildOnly adds the guild only guard
	GuildOnly bool
	// Permissions adds the permission guard when not empty
	Permissions map[string]bool
}

// Guards composes the guards described by opts in their fixed order: enabled, guild only
// then permissions. The result is meant for Trigger.SetMiddlewares, first is outermost.
func Guards(opts GuardOptions) ([]MiddleWareFunc, error) {
	var mws []MiddleWareFunc

	if opts.Enabled != nil {
		mws = append(mws, EnabledGuard(opts.Enabled))
	}

	if opts.GuildOnly {
		mws = append(mws, GuildOnlyGuard)
	}

	if len(opts.Permissions) > 0 {
		perm, err := PermissionGuard(opts.Permissions)
		if err != nil {
			return nil, err
		}
		mws = append(mws, perm)
	}

	return mws, nil
}

// MustGuards is like Guards but panics on configuration errors
func MustGuards(opts GuardOptions) []MiddleWareFunc {
	mws, err := Guards(opts)
	if err != nil {
		panic(err)
	}
	return mws
}
