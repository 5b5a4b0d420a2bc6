package models

// MenuEntry is one navigation link of a role's sidebar.
type MenuEntry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

var menus = map[Role][]MenuEntry{
	RolePatient: {
		{Label: "Dashboard", Path: "/patient/dashboard"},
		{Label: "Available Doctors", Path: "/patient/doctors"},
		{Label: "My Appointments", Path: "/patient/appointments"},
	},
	RoleDoctor: {
		{Label: "Dashboard", Path: "/doctor/dashboard"},
		{Label: "Today's Appointments", Path: "/doctor/appointments/today"},
		{Label: "All Appointments", Path: "/doctor/appointments"},
		{Label: "Profile", Path: "/doctor/profile"},
	},
	RoleAdmin: {
		{Label: "Dashboard", Path: "/admin/dashboard"},
		{Label: "Pending Doctors", Path: "/admin/pending"},
		{Label: "All Doctors", Path: "/admin/doctors"},
		{Label: "All Patients", Path: "/admin/patients"},
	},
}

// MenuFor returns the navigation entries of role. Every entry lies inside
// the role's own path prefix.
func MenuFor(role Role) []MenuEntry {
	entries := menus[role]
	out := make([]MenuEntry, len(entries))
	copy(out, entries)
	return out
}
