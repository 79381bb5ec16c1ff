/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariant_CopyIsIndependent(t *testing.T) {
	v := NewArrayVariant(TypeString, []string{"hello", "world", "foo"})
	cp := v.Copy()

	cp.Value.([]string)[0] = "mutated"
	assert.Equal(t, "hello", v.Value.([]string)[0], "copy must not alias original backing array")

	cp.Clear()
	require.False(t, v.IsEmpty(), "clearing a copy must not affect the original (clear(copy(x)) independence law)")
}

func TestVariant_ClearBorrowedIsNoop(t *testing.T) {
	v := NewScalarVariant(TypeInt32, int32(42))
	v.Ownership = Borrowed
	v.Clear()
	assert.False(t, v.IsEmpty(), "borrowed payload must survive Clear (DATA_NODELETE)")
}

func TestVariant_MatrixShapeInvariant(t *testing.T) {
	v := NewMatrixVariant(TypeInt32, []int32{1, 2, 3, 4, 5, 6}, []int32{2, 3})
	require.True(t, v.HasDimensions())
	product := int32(1)
	for _, d := range v.Dimensions {
		product *= d
	}
	assert.EqualValues(t, len(v.Value.([]int32)), product)
}
