package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"learner": {
		"subject:list",
		"exam:create",
		"exam:view",
		"exam:submit",
		"exam:result",
		"dashboard:view",
	},
	"admin": {
		"*", // everything
	},
}
