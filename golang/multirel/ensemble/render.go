package ensemble

import (
	"fmt"
	"path"

	"github.com/goccy/go-graphviz"

	"github.com/tarstars/relational_features/golang/multirel/decisiontree"
)

var graphvizType = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
	"dot": graphviz.XDOT,
}

//RenderTrees draws every tree into picturesDirectory as <dumpPrefix>_<tree number>.<figureType>.
func (e *Ensemble) RenderTrees(input decisiontree.Input, dumpPrefix, figureType, picturesDirectory string) error {
	format, ok := graphvizType[figureType]
	if !ok {
		return fmt.Errorf("unknown figure type %q", figureType)
	}
	for graphInd, currentTree := range e.Trees {
		filename := fmt.Sprintf("%s_%05d.%s", dumpPrefix, graphInd, figureType)
		if err := renderTree(currentTree, input, format, path.Join(picturesDirectory, filename)); err != nil {
			return fmt.Errorf("render tree %d: %w", graphInd, err)
		}
	}
	return nil
}

func renderTree(tree *decisiontree.Tree, input decisiontree.Input, format graphviz.Format, filename string) error {
	graphViz, graph := tree.DrawGraph(input)
	defer graphViz.Close()
	defer graph.Close()
	return graphViz.RenderFilename(graph, format, filename)
}
