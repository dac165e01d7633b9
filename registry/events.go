package registry

// EventAdd is published when an interface joins the managed set.
type EventAdd struct {
	Name string
}

// EventDelete is published when an interface leaves the managed set.
type EventDelete struct {
	Name string
}

// EventBind is published when a managed interface is bound to a live
// device.
type EventBind struct {
	Name  string
	Index int
}

// EventUnbind is published when a managed interface loses its device.
type EventUnbind struct {
	Name  string
	Index int
}
