package decisiontree

import (
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/tarstars/relational_features/golang/multirel/helpers"
)

func activation(isActivated bool) string {
	if isActivated {
		return "activated"
	}
	return "deactivated"
}

func (n *Node) description(c *Columns) string {
	if n.Split == nil {
		return activation(n.IsActivated)
	}
	if n.Greater == nil {
		return fmt.Sprintf("%s\ngreater: %s\nsmaller: %s",
			n.conditionSQL(c, false), activation(n.greaterActivated()), activation(!n.greaterActivated()))
	}
	return fmt.Sprintf("%s\nimprovement=%.4g", n.conditionSQL(c, false), n.Improvement)
}

func recurrentDraw(g *cgraph.Graph, c *Columns, node *Node, nodeNumber *int, parentNode *cgraph.Node, edgeLabel string) {
	currentNode, err := g.CreateNode(fmt.Sprint(*nodeNumber))
	helpers.HandleError(err)
	*nodeNumber++

	if parentNode != nil {
		edge, err := g.CreateEdge("", parentNode, currentNode)
		helpers.HandleError(err)
		edge.SetLabel(edgeLabel)
	}

	currentNode.Set("label", node.description(c))
	if node.Greater == nil {
		currentNode.Set("shape", "box")
		return
	}
	recurrentDraw(g, c, node.Smaller, nodeNumber, currentNode, "yes")
	recurrentDraw(g, c, node.Greater, nodeNumber, currentNode, "no")
}

//DrawGraph renders the tree. The edges are labeled by whether the condition of the parent holds.
func (t *Tree) DrawGraph(input Input) (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	helpers.HandleError(err)

	nodeNumber := 0
	recurrentDraw(graph, t.columns(input), t.Root, &nodeNumber, nil, "")

	return graphViz, graph
}
