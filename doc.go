/*
go-personcounter counts people in a camera or video stream using a
pretrained YOLOv4-tiny model run through OpenCV's DNN module (gocv).

The root package wraps the DNN network as a Detector producing raw output
tensors.  The camera package reads frames from capture devices, video
files, and stream URLs.  The postprocess package decodes output tensors
into detection results and filters them to the person class, the counter
package keeps the smoothed count statistics, and the render package draws
boxes and the stats HUD onto frames.  Tracking of individual persons
across frames is provided by the tracker package, optional persistence by
store, and an optional MJPEG/stats HTTP server by stream.

See cmd/personcounter for the application wiring these together.
*/
package personcounter
