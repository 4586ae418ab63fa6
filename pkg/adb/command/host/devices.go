package host

// Devices host:devices，返回 serial\tstate 列表
func Devices() Request {
	return newRequest(VerbDevices)
}

// DevicesLong host:devices-l，返回带 usb/product/model/transport_id 的列表
func DevicesLong() Request {
	return newRequest(VerbDevicesLong)
}

// TrackDevices host:track-devices，服务器保持连接并在设备变化时推送完整列表
func TrackDevices() Request {
	return newRequest(VerbTrackDevices)
}
