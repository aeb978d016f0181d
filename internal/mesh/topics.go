package mesh

import "fmt"

// Topic patterns for mesh pub/sub communication.

func topicNodeJoin(group string) string {
	return fmt.Sprintf("mesh.%s.nodes.join", group)
}

func topicTaskCoordinate(group string) string {
	return fmt.Sprintf("mesh.%s.tasks.coordinate", group)
}
