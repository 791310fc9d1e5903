package analyzer

import (
	"gonum.org/v1/gonum/floats"

	"go-fenghuotai/pkg/models"
)

const unvisited = -2

// dbscan 经典密度聚类：ε邻域内至少minPts个点的为核心点，
// 可达点并入同一聚类，其余标记为噪声(ClusterNoise)。
// 聚类编号按发现顺序从0递增，输入相同则输出相同。
func dbscan(points [][]float64, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	clusterID := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = models.ClusterNoise
			continue
		}

		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == models.ClusterNoise {
				// 噪声点落在核心点邻域内，归入聚类作为边界点
				labels[j] = clusterID
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = clusterID
			jNeighbors := regionQuery(points, j, eps)
			if len(jNeighbors) >= minPts {
				queue = append(queue, jNeighbors...)
			}
		}
		clusterID++
	}
	return labels
}

// regionQuery 返回与点i欧氏距离不超过eps的所有下标，含自身
func regionQuery(points [][]float64, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if floats.Distance(points[i], points[j], 2) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
