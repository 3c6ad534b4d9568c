// Package match defines the muzz.match.v1.MatchService gRPC contract.
//
// Payloads travel as google.protobuf.Struct, so the service needs no
// generated message code. The typed Go request/response structs below are
// converted to and from Struct through their JSON form. The file descriptor
// is registered at init, which keeps server reflection (grpcurl) working.
package match

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/structpb" // registers google/protobuf/struct.proto
)

const (
	ServiceName = "muzz.match.v1.MatchService"
	FileName    = "muzz/match/v1/match.proto"

	structType = ".google.protobuf.Struct"
)

func init() {
	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(MatchService_ServiceDesc.Methods))
	for _, m := range MatchService_ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	fd := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(FileName),
		Package:    proto.String("muzz.match.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/oggyb/muzz-match/internal/proto/match"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("MatchService"),
			Method: methods,
		}},
	}

	file, err := protodesc.NewFile(fd, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("match: build descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(file); err != nil {
		panic(fmt.Sprintf("match: register descriptor: %v", err))
	}
}
