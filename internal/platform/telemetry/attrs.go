package telemetry

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String("method", method)
}

func pathAttr(path string) attribute.KeyValue {
	return attribute.String("path", path)
}

func statusAttr(status int) attribute.KeyValue {
	return attribute.String("status", strconv.Itoa(status))
}

func resultAttr(result string) attribute.KeyValue {
	return attribute.String("result", result)
}

func classAttr(class string) attribute.KeyValue {
	return attribute.String("class", class)
}

func schemeAttr(scheme string) attribute.KeyValue {
	return attribute.String("scheme", scheme)
}

func instrumentAttr(instrument string) attribute.KeyValue {
	return attribute.String("instrument", instrument)
}

func operationAttr(operation string) attribute.KeyValue {
	return attribute.String("operation", operation)
}

func actionAttr(action string) attribute.KeyValue {
	return attribute.String("action", action)
}

func stageAttr(stage string) attribute.KeyValue {
	return attribute.String("stage", stage)
}
