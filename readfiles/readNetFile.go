package readfiles

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/gomesh/geometry2D"
)

/*
	Reads a plain text net file:

	NNODES <n>
	<x> <y>          (n lines)
	NEDGES <m>
	<first> <second> (m lines, zero based node ids)

	Blank lines and lines starting with '#' are skipped.
*/
func ReadNet(filename string, verbose bool) (nodes []geometry2D.Point, edges [][2]int, err error) {
	var file *os.File
	if verbose {
		fmt.Printf("Reading net file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		return nil, nil, fmt.Errorf("unable to open file %s: %w", filename, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	nextFields := func() ([]string, error) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return strings.Fields(line), nil
		}
		return nil, fmt.Errorf("unexpected end of file in %s", filename)
	}

	count := func(keyword string) (int, error) {
		fields, err := nextFields()
		if err != nil {
			return 0, err
		}
		if len(fields) != 2 || !strings.EqualFold(fields[0], keyword) {
			return 0, fmt.Errorf("expected \"%s <count>\", got %q", keyword, strings.Join(fields, " "))
		}
		return strconv.Atoi(fields[1])
	}

	numNodes, err := count("NNODES")
	if err != nil {
		return nil, nil, err
	}
	nodes = make([]geometry2D.Point, numNodes)
	for n := 0; n < numNodes; n++ {
		fields, err := nextFields()
		if err != nil {
			return nil, nil, err
		}
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("node %d: expected two coordinates", n)
		}
		if nodes[n].X, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", n, err)
		}
		if nodes[n].Y, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, nil, fmt.Errorf("node %d: %w", n, err)
		}
	}

	numEdges, err := count("NEDGES")
	if err != nil {
		return nil, nil, err
	}
	edges = make([][2]int, numEdges)
	for e := 0; e < numEdges; e++ {
		fields, err := nextFields()
		if err != nil {
			return nil, nil, err
		}
		if len(fields) < 2 {
			return nil, nil, fmt.Errorf("edge %d: expected two node ids", e)
		}
		if edges[e][0], err = strconv.Atoi(fields[0]); err != nil {
			return nil, nil, fmt.Errorf("edge %d: %w", e, err)
		}
		if edges[e][1], err = strconv.Atoi(fields[1]); err != nil {
			return nil, nil, fmt.Errorf("edge %d: %w", e, err)
		}
	}

	if verbose {
		fmt.Printf("Nv = %d, Ne = %d\n", len(nodes), len(edges))
	}
	return nodes, edges, nil
}

// WriteNet writes nodes and edges in the format ReadNet reads
func WriteNet(filename string, nodes []geometry2D.Point, edges [][2]int) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("unable to create file %s: %w", filename, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "NNODES %d\n", len(nodes))
	for _, node := range nodes {
		fmt.Fprintf(writer, "%.16g %.16g\n", node.X, node.Y)
	}
	fmt.Fprintf(writer, "NEDGES %d\n", len(edges))
	for _, edge := range edges {
		fmt.Fprintf(writer, "%d %d\n", edge[0], edge[1])
	}
	return writer.Flush()
}
