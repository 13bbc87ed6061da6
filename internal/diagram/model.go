package diagram

// NodeKind classifies a diagram node by its workflow node type.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindCondition NodeKind = "condition"
	NodeKindCRM       NodeKind = "crm"
	NodeKindHTTP      NodeKind = "http"
	NodeKindEmail     NodeKind = "email"
	NodeKindAI        NodeKind = "ai"
)

// Model is the intermediate representation used by all renderers.
type Model struct {
	Title string
	Nodes []*Node
	Edges []Edge
}

// Node is a single workflow node in the diagram. Status is empty unless an
// execution log overlay was applied.
type Node struct {
	ID     string
	Label  string
	Kind   NodeKind
	Status string
}

// Edge is a directed connection between two nodes. Label carries the yes/no
// marker on condition branches.
type Edge struct {
	From  string
	To    string
	Label string
}
