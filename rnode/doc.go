// Package rnode defines the tagged-variant contract shared by model nodes
// and data nodes: Node = Model(ModelNode) | Data(DataNode), per the
// implementation's DESIGN NOTES ("express as a tagged variant ... rather
// than a virtual base class. Traversal dispatches on the tag."). Go has no
// sum types, so the variant is expressed as a small interface plus a Kind
// tag; callers type-switch on the concrete *mnode.Node[P] / *gapped.Node[P]
// when they need node-specific behavior, and use the interface only for
// traversal and parent/child bookkeeping.
//
// This package exists purely to break the otherwise-cyclic import between
// mnode (which holds children of either kind) and gapped (whose nodes are
// one of those children and also hold a parent pointer): both depend on
// rnode, neither depends on the other.
package rnode
