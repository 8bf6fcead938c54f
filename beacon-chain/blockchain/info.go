package blockchain

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/emicklei/dot"
	"github.com/forkchoice/beacon/beacon-chain/forkchoice/protoarray"
	"github.com/forkchoice/beacon/encoding/bytesutil"
)

const template = `<html>
<head>
    <script src="//cdnjs.cloudflare.com/ajax/libs/viz.js/2.1.2/viz.js"></script>
    <script src="//cdnjs.cloudflare.com/ajax/libs/viz.js/2.1.2/full.render.js"></script>
<body>
    <script type="application/javascript">
        var graph = ` + "`%s`;" + `
        var viz = new Viz();
        viz.renderSVGElement(graph) // reading the graph.
            .then(function(element) {
                document.body.appendChild(element); // appends to document.
            })
            .catch(error => {
                // Create a new Viz instance (@see Caveats page for more info)
                viz = new Viz();
                // Possibly display the error
                console.error(error);
            });
    </script>
</head>
</body>
</html>`

// HeadsHandler is a handler to serve /heads page in metrics.
func (s *Service) HeadsHandler(w http.ResponseWriter, _ *http.Request) {
	fc := s.ForkChoicer()
	if fc == nil {
		if _, err := w.Write([]byte("Unavailable before the first block")); err != nil {
			log.WithError(err).Error("Failed to render chain heads page")
		}
		return
	}
	if _, err := fmt.Fprintf(w, "\n %s\t%s\t", "Head slot", "Head root"); err != nil {
		log.WithError(err).Error("Failed to render chain heads page")
		return
	}
	if _, err := fmt.Fprintf(w, "\n %s\t%s\t", "---------", "---------"); err != nil {
		log.WithError(err).Error("Failed to render chain heads page")
		return
	}
	roots, slots := fc.Tips()
	for i, r := range roots {
		if _, err := fmt.Fprintf(w, "\n %d\t\t%#x\t", slots[i], bytesutil.Trunc(r[:])); err != nil {
			log.WithError(err).Error("Failed to render chain heads page")
			return
		}
	}
}

// TreeHandler is a handler to serve /tree page in metrics.
func (s *Service) TreeHandler(w http.ResponseWriter, _ *http.Request) {
	fc := s.ForkChoicer()
	if fc == nil {
		if _, err := w.Write([]byte("Unavailable before the first block")); err != nil {
			log.WithError(err).Error("Failed to render fork choice tree page")
		}
		return
	}
	headRoot := s.HeadRoot()
	nodes := fc.Nodes()

	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "RL")
	graph.Attr("labeljust", "l")

	dotNodes := make([]dot.Node, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		index := strconv.Itoa(i)
		label := "slot: " + strconv.FormatUint(uint64(n.Slot), 10) +
			"\n index: " + index +
			"\n root: " + fmt.Sprintf("%#x", bytesutil.Trunc(n.Root[:])) +
			"\n weight: " + strconv.FormatUint(n.Weight/1e9, 10) + // Convert unit Gwei to unit ETH.
			"\n status: " + n.Status.String()
		dotN := graph.Node(index).Box().Attr("label", label)
		if n.Root == headRoot {
			dotN = dotN.Attr("color", "green")
		}
		dotNodes[i] = dotN
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if p := nodes[i].Parent; p != protoarray.NonExistentNode && p < uint64(len(dotNodes)) {
			graph.Edge(dotNodes[i], dotNodes[p])
		}
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, template, graph.String()); err != nil {
		log.WithError(err).Error("Failed to render fork choice tree page")
	}
}
