package rbac

// Default policy for the attempt API.
var RolePermissions = map[string][]string{
	"student": {
		"question:view",
		"attempt:create",
		"attempt:save",
		"attempt:finish",
		"attempt:resume",
		"attempt:view-own",
	},
	"teacher": {
		"question:view",
		"attempt:*",
	},
	"admin": {
		"*", // everything
	},
}
