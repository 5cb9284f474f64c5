// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the value types flowing through a graph.
//
// # Overview
//
// Data is a rank 0, 1 or 2 float32 tensor: a scalar, a vector or a matrix.
// The None variant is the sentinel produced by invalid operations (shape
// mismatch, unsupported operand pair); it is never silently coerced to zero.
//
// Container lifts Data into one of three usage roles:
//   - Batch: N independent examples
//   - Inference: exactly one example
//   - Parameter: one value shared across every example (broadcast)
//
// Binary container operations follow one rule table; unsupported pairings
// yield the Empty sentinel.
//
// # Basic Usage
//
//	w := tensor.Matrix([][]float32{{1, 2, 3}, {3, 2, 1}})
//	x := tensor.Vector([]float32{0.7, 0.1, 1.0})
//	z := w.MatMul(x) // [3.9, 3.3]
//
//	batch := tensor.Batch(x, x.Scale(2))
//	shifted := batch.Plus(tensor.Parameter(tensor.Full(x.Shape(), 0.5)))
package tensor

import (
	"github.com/born-ml/nodegraph/internal/tensor"
)

// Kind identifies the Data variant.
type Kind = tensor.Kind

// Data variants.
const (
	KindNone   = tensor.KindNone
	KindScalar = tensor.KindScalar
	KindVector = tensor.KindVector
	KindMatrix = tensor.KindMatrix
)

// Shape represents the dimensions of a Data value.
type Shape = tensor.Shape

// ScalarShape returns the shape of a scalar.
func ScalarShape() Shape {
	return tensor.ScalarShape()
}

// VectorShape returns the shape of an n-element vector.
func VectorShape(n int) Shape {
	return tensor.VectorShape(n)
}

// MatrixShape returns the shape of a rows x cols matrix.
func MatrixShape(rows, cols int) Shape {
	return tensor.MatrixShape(rows, cols)
}

// Data is a scalar, vector or matrix of float32.
type Data = tensor.Data

// None returns the invalid-result sentinel.
func None() Data {
	return tensor.None()
}

// Scalar creates a scalar.
func Scalar(v float32) Data {
	return tensor.Scalar(v)
}

// Vector creates a vector from values.
func Vector(values []float32) Data {
	return tensor.Vector(values)
}

// Matrix creates a matrix from equal-length rows.
func Matrix(rows [][]float32) Data {
	return tensor.Matrix(rows)
}

// FromSlice creates a Data of the given shape from row-major values.
func FromSlice(shape Shape, values []float32) Data {
	return tensor.FromSlice(shape, values)
}

// Full creates a Data of the given shape with every element set to v.
func Full(shape Shape, v float32) Data {
	return tensor.Full(shape, v)
}

// Zeros creates a zero-filled Data of the given shape.
func Zeros(shape Shape) Data {
	return tensor.Zeros(shape)
}

// Role identifies how many examples a Container represents.
type Role = tensor.Role

// Container roles.
const (
	RoleEmpty     = tensor.RoleEmpty
	RoleBatch     = tensor.RoleBatch
	RoleInference = tensor.RoleInference
	RoleParameter = tensor.RoleParameter
)

// Container is a batch-aware wrapper over Data.
type Container = tensor.Container

// Empty returns the invalid-result sentinel.
func Empty() Container {
	return tensor.Empty()
}

// Batch wraps independent examples.
func Batch(items ...Data) Container {
	return tensor.Batch(items...)
}

// Inference wraps a single example.
func Inference(d Data) Container {
	return tensor.Inference(d)
}

// Parameter wraps a value shared by every example.
func Parameter(d Data) Container {
	return tensor.Parameter(d)
}
