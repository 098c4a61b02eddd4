package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster-pipeline/internal/detection"
	"github.com/ironsheep/raster-pipeline/internal/imaging"
	"github.com/ironsheep/raster-pipeline/internal/pipeline"
	"github.com/ironsheep/raster-pipeline/internal/storage"
)

// Convolution engines accepted by image_convolve.
const (
	EngineNaive = "naive"
	EngineBild  = "bild"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_edge_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// TransformResult describes the file written by a transform tool.
type TransformResult struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Kind   string `json:"kind"`

	// Corners is only set by image_corner_detect.
	Corners []detection.Corner `json:"corners,omitempty"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log := s.logger.WithField("tool", params.Name)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("Tool executed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each transform handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the source image from the cache
//  4. Runs the transformation and saves the result through the store
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Color Operations
	case "image_grayscale":
		return s.handleImageGrayscale(ctx, args)
	case "image_to_color":
		return s.handleImageToColor(ctx, args)
	case "image_gamma":
		return s.handleImageGamma(ctx, args)

	// Filtering
	case "image_convolve":
		return s.handleImageConvolve(ctx, args)

	// Feature Detection
	case "image_edge_detect":
		return s.handleImageEdgeDetect(ctx, args)
	case "image_corner_detect":
		return s.handleImageCornerDetect(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// save writes img below outputDir and drops any cached copy of the
// destination, since the file on disk has just changed.
func (s *Server) save(ctx context.Context, img *imaging.Image, outputDir string) (*TransformResult, error) {
	path, err := s.store.Save(ctx, img, outputDir)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(path)

	s.logger.WithFields(logrus.Fields{"path": path, "name": img.Name()}).Info("Image saved")
	return &TransformResult{
		Path:   path,
		Name:   img.Name(),
		Width:  img.Cols(),
		Height: img.Rows(),
		Kind:   img.Kind().String(),
	}, nil
}

// transform loads path, applies op and saves the result.
func (s *Server) transform(ctx context.Context, path, outputDir string, op pipeline.Op) (*TransformResult, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	out, err := pipeline.ApplyOp(op, img)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, out, outputDir)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return storage.Describe(s.cache, a.Path)
}

// === Color Operation Handlers ===

type transformArgs struct {
	Path      string `json:"path"`
	OutputDir string `json:"output_dir"`
}

func (s *Server) handleImageGrayscale(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a transformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.transform(ctx, a.Path, a.OutputDir, pipeline.Grayscale{})
}

func (s *Server) handleImageToColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a transformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.transform(ctx, a.Path, a.OutputDir, pipeline.Color{})
}

type imageGammaArgs struct {
	transformArgs
	Gamma float64 `json:"gamma"`
}

func (s *Server) handleImageGamma(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageGammaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Gamma == 0 {
		a.Gamma = imaging.DefaultGamma
	}
	g, err := imaging.NewGamma(a.Gamma)
	if err != nil {
		return nil, err
	}
	return s.transform(ctx, a.Path, a.OutputDir, pipeline.Gamma{G: g})
}

// === Filtering Handlers ===

type imageConvolveArgs struct {
	transformArgs
	Kernel [][]float64 `json:"kernel"`
	Engine string      `json:"engine"`
}

func (s *Server) handleImageConvolve(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageConvolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	k := imaging.DefaultKernel()
	if len(a.Kernel) > 0 {
		var err error
		if k, err = imaging.KernelFromRows(a.Kernel); err != nil {
			return nil, err
		}
	}

	var op pipeline.Op
	switch a.Engine {
	case "", EngineNaive:
		op = pipeline.Convolve{Kernel: k}
	case EngineBild:
		op = pipeline.BildConvolve{Kernel: k}
	default:
		return nil, fmt.Errorf("unknown engine %q, want %q or %q", a.Engine, EngineNaive, EngineBild)
	}
	return s.transform(ctx, a.Path, a.OutputDir, op)
}

// === Feature Detection Handlers ===

func (s *Server) handleImageEdgeDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a transformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.transform(ctx, a.Path, a.OutputDir, pipeline.Edges{})
}

type imageCornerDetectArgs struct {
	transformArgs
	Threshold    float64 `json:"threshold"`
	K            float64 `json:"k"`
	Sigma        float64 `json:"sigma"`
	NMSRadius    int     `json:"nms_radius"`
	MarkerRadius int     `json:"marker_radius"`
	MarkerColor  string  `json:"marker_color"`
}

// options returns the corner options, with zero values replaced by defaults.
func (a imageCornerDetectArgs) options() detection.CornerOptions {
	opts := detection.DefaultCornerOptions()
	if a.Threshold != 0 {
		opts.Threshold = a.Threshold
	}
	if a.K != 0 {
		opts.K = a.K
	}
	if a.Sigma != 0 {
		opts.Sigma = a.Sigma
	}
	if a.NMSRadius != 0 {
		opts.NMSRadius = a.NMSRadius
	}
	if a.MarkerRadius != 0 {
		opts.MarkerRadius = a.MarkerRadius
	}
	if a.MarkerColor != "" {
		opts.MarkerColor = a.MarkerColor
	}
	return opts
}

func (s *Server) handleImageCornerDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageCornerDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	out, corners, err := detection.DetectCorners(img, a.options())
	if err != nil {
		return nil, err
	}
	res, err := s.save(ctx, out, a.OutputDir)
	if err != nil {
		return nil, err
	}
	res.Corners = corners
	return res, nil
}
