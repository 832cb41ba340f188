// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package k8s provides the optional Kubernetes-backed node membership
// source for the cluster probe ([cluster] provider=k8s).
//
// # Sub-packages
//
// client: a singleton Kubernetes client with automatic in-cluster/kubeconfig
// authentication.
//
//	clientset, config, err := client.GetKubeClient()
//
// node: lists v1.Node objects and adapts them into the plain node-name list
// the cluster producer's NodeLister interface expects.
//
//	lister := node.NewLister(node.ListOptions{})
//	names, err := lister.ListNodes(ctx)
//
// # Thread safety
//
// client uses sync.Once for thread-safe singleton initialization; node's
// Lister is safe for concurrent use since it holds no mutable state beyond
// the client handle.
package k8s
